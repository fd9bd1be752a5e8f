package pipeline

import (
	"encoding/json"
)

// Report is the summary of one pipeline invocation. A report with an
// ErrorMessage is the short form emitted when setup or source loading
// failed; it serializes without dimensions or per-operation results.
type Report struct {
	Height           int
	Width            int
	MD5              string
	Info             []any
	Result           bool
	TotalOperations  int
	FailedOperations int
	// Time is the wall time of Run in seconds.
	Time         float64
	ErrorMessage string
}

type fullReport struct {
	Height           int     `json:"height"`
	Width            int     `json:"width"`
	MD5              string  `json:"md5"`
	Info             []any   `json:"info"`
	Result           bool    `json:"result"`
	TotalOperations  int     `json:"total_operations"`
	FailedOperations int     `json:"failed_operations"`
	Time             float64 `json:"time"`
}

type errorReport struct {
	Result           bool   `json:"result"`
	ErrorMessage     string `json:"error_message"`
	TotalOperations  int    `json:"total_operations"`
	FailedOperations int    `json:"failed_operations"`
}

// errorOnly builds the short-form report for a fatal error.
func errorOnly(msg string) Report {
	return Report{Result: false, ErrorMessage: msg}
}

func (r Report) MarshalJSON() ([]byte, error) {
	if r.ErrorMessage != "" {
		return json.Marshal(errorReport{
			Result:       false,
			ErrorMessage: r.ErrorMessage,
		})
	}
	info := r.Info
	if info == nil {
		info = []any{}
	}
	return json.Marshal(fullReport{
		Height:           r.Height,
		Width:            r.Width,
		MD5:              r.MD5,
		Info:             info,
		Result:           r.Result,
		TotalOperations:  r.TotalOperations,
		FailedOperations: r.FailedOperations,
		Time:             r.Time,
	})
}

// Encode serializes r, indented when pretty is set.
func (r Report) Encode(pretty bool) (string, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(r, "", "  ")
	} else {
		data, err = json.Marshal(r)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
