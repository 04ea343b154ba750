package logger

import (
	"log"
	"strings"
	"sync"
)

// The oracle log is a separate plain-text channel so that full prompts and raw
// model output can be audited without flooding the main log.
var (
	oracleMu  sync.Mutex
	oracleLog *log.Logger
)

func SetOracleWriter(w interface{ Write([]byte) (int, error) }) {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	if w == nil {
		oracleLog = nil
		return
	}
	oracleLog = log.New(w, "", log.LstdFlags)
}

func logOracle(kind, purpose string, sections [][2]string) {
	oracleMu.Lock()
	l := oracleLog
	oracleMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[ORACLE][" + kind + "]")
	if purpose != "" {
		b.WriteString("[" + purpose + "]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		title := sec[0]
		if title == "" {
			title = "CONTENT"
		}
		b.WriteString("--- " + title + " ---\n")
		b.WriteString(sec[1])
		if !strings.HasSuffix(sec[1], "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

func LogOracleRequest(purpose, system, user string) {
	logOracle("request", purpose, [][2]string{{"SYSTEM", system}, {"USER", user}})
}

func LogOracleResponse(purpose, raw string) {
	logOracle("response", purpose, [][2]string{{"RAW", raw}})
}
