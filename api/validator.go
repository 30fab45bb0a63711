package main

import "time"

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDate accepts the two date shapes clients send for deadlines and the
// dueBefore filter.
func parseDate(s string) (time.Time, error) {
	var t time.Time
	var err error
	for _, layout := range dateLayouts {
		t, err = time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func anyEmpty(fields ...string) bool {
	for _, f := range fields {
		if f == "" {
			return true
		}
	}
	return false
}
