// Package report renders pipeline output for inspection: a static PNG
// time-frequency plot drawn with gonum/plot and an interactive HTML page
// drawn with go-echarts. Both colour tracks by the event they belong to.
package report
