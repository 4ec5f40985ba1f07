package domain

// ActionBucket labels replies produced by a deterministic action (video or
// photo analysis) rather than a conversational turn. It replaces the timing
// bucket for business reporting and is not a measurement.
const ActionBucket = "action"

// responseBucket pairs an inclusive upper bound in seconds with its label.
type responseBucket struct {
	upper float64
	label string
}

// Thresholds are inclusive on the lower bucket: 7200s is still "1-2 Hours".
// There is deliberately no label past five hours; anything later collapses
// into the open-ended top bucket.
var responseBuckets = []responseBucket{
	{120, "0-2minutes"},
	{300, "2-5 minutes"},
	{600, "5-10 minutes"},
	{1200, "10-20 minutes"},
	{1800, "20-30 minutes"},
	{3600, "30-60 minutes"},
	{7200, "1-2 Hours"},
}

const slowestBucket = "2-5 Hours"

// Bucket classifies the elapsed seconds between the bot's previous outbound
// message and the start of the current batch into a discrete response-time
// label. Pure function, total over non-negative inputs.
func Bucket(seconds float64) string {
	for _, b := range responseBuckets {
		if seconds <= b.upper {
			return b.label
		}
	}
	return slowestBucket
}
