package service

import (
	"fmt"
	"strings"
	"time"
)

const (
	logTimestampLayout = "02/01/2006 15:04"
	requesterReopenTag = "(REQUESTER)"
	requesterReopenMsg = "TICKET REOPENED BY REQUESTER."
)

var logSeparator = strings.Repeat("-", 50)

// formatLogEntry renders one solution log entry. Entries are prepended, so the
// log reads newest first.
func formatLogEntry(at time.Time, author, note string) string {
	return fmt.Sprintf("[%s - %s]:\n%s\n%s\n", at.Format(logTimestampLayout), author, note, logSeparator)
}

func requesterReopenEntry(at time.Time, author string) string {
	return formatLogEntry(at, author+" "+requesterReopenTag, requesterReopenMsg)
}
