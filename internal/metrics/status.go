package metrics

import "strconv"

// statusClass folds a response code into its class label ("2xx", "4xx").
// Codes outside 100-599 are labelled "other".
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
