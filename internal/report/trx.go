// Package report parses the engine-native TRX test-report XML and
// converts it into the canonical verdict schema, applying the outcome
// remap and counter-rename laws the schema requires.
package report

import (
	"bytes"
	"encoding/xml"
)

// trxDocument mirrors the subset of the Visual Studio Test Results
// schema this converter reads. encoding/xml never fetches external
// entities or resolves a DOCTYPE on its own, so no further hardening is
// needed beyond decoding with Strict mode on.
type trxDocument struct {
	XMLName         xml.Name        `xml:"TestRun"`
	ID              string          `xml:"id,attr"`
	Times           trxTimes        `xml:"Times"`
	ResultSummary   trxResultSummary `xml:"ResultSummary"`
	TestDefinitions []trxUnitTest   `xml:"TestDefinitions>UnitTest"`
	Results         []trxResult     `xml:"Results>UnitTestResult"`
}

type trxTimes struct {
	Creation string `xml:"creation,attr"`
	Start    string `xml:"start,attr"`
	Finish   string `xml:"finish,attr"`
}

type trxResultSummary struct {
	Outcome  string       `xml:"outcome,attr"`
	Counters trxCounters  `xml:"Counters"`
	Output   trxRunOutput `xml:"Output"`
}

type trxRunOutput struct {
	StdOut string `xml:"StdOut"`
}

type trxCounters struct {
	Total        int `xml:"total,attr"`
	Executed     int `xml:"executed,attr"`
	Passed       int `xml:"passed,attr"`
	Failed       int `xml:"failed,attr"`
	NotExecuted  int `xml:"notExecuted,attr"`
	Error        int `xml:"error,attr"`
	Timeout      int `xml:"timeout,attr"`
	Aborted      int `xml:"aborted,attr"`
	Inconclusive int `xml:"inconclusive,attr"`
}

type trxUnitTest struct {
	ID         string        `xml:"id,attr"`
	Name       string        `xml:"name,attr"`
	TestMethod trxTestMethod `xml:"TestMethod"`
}

type trxTestMethod struct {
	ClassName string `xml:"className,attr"`
	Name      string `xml:"name,attr"`
}

type trxResult struct {
	ExecutionID string       `xml:"executionId,attr"`
	TestID      string       `xml:"testId,attr"`
	TestName    string       `xml:"testName,attr"`
	Outcome     string       `xml:"outcome,attr"`
	Duration    string       `xml:"duration,attr"`
	StartTime   string       `xml:"startTime,attr"`
	EndTime     string       `xml:"endTime,attr"`
	Output      trxTestOutput `xml:"Output"`
}

type trxTestOutput struct {
	ErrorInfo trxErrorInfo `xml:"ErrorInfo"`
}

type trxErrorInfo struct {
	Message    string `xml:"Message"`
	StackTrace string `xml:"StackTrace"`
}

func decodeTRX(data []byte) (trxDocument, error) {
	var doc trxDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	if err := dec.Decode(&doc); err != nil {
		return trxDocument{}, err
	}
	return doc, nil
}
