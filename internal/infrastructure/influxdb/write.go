package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteCueExecution records a cue execution to InfluxDB.
//
// This is the primary telemetry point for post-show analysis: comparing
// executed times against planned times across performances of the same show.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - showID: The show the cue belongs to
//   - cueID: The executed cue
//   - department: Owning department (e.g., "LX", "SND", "FLY")
//   - secondsIntoShow: Seconds elapsed from show start to execution
//
// Example:
//
//	client.WriteCueExecution("show-a1b2c3d4", "cue-e5f6a7b8", "LX", 312.4)
func (c *Client) WriteCueExecution(showID, cueID, department string, secondsIntoShow float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"cue_executions",
		map[string]string{
			"show_id":    showID,
			"cue_id":     cueID,
			"department": department,
		},
		map[string]interface{}{
			"seconds_into_show": secondsIntoShow,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteShowStatus records a show status snapshot.
//
// Used for tracking running time and progress through the cue sheet.
//
// Parameters:
//   - showID: Show identifier
//   - status: Current status (e.g., "running", "hold", "completed")
//   - elapsedSeconds: Seconds since show start (0 if not started)
func (c *Client) WriteShowStatus(showID, status string, elapsedSeconds float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"show_status",
		map[string]string{
			"show_id": showID,
			"status":  status,
		},
		map[string]interface{}{
			"elapsed_seconds": elapsedSeconds,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteHold records a hold being placed on a show.
//
// Hold frequency and duration across performances feed venue reports.
//
// Parameters:
//   - showID: Show identifier
//   - reason: The hold reason entered by the stage manager
func (c *Client) WriteHold(showID, reason string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"holds",
		map[string]string{
			"show_id": showID,
		},
		map[string]interface{}{
			"reason": reason,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
