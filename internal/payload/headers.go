package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shineum/mailjet-transport/internal/email"
)

// VarsHeader carries template variables, optionally as a JSON string.
const VarsHeader = "X-MJ-Vars"

// ErrInvalidVars reports an X-MJ-Vars header holding a string that is not
// valid JSON. The header's field is still emitted, with a null value.
var ErrInvalidVars = errors.New("payload: invalid X-MJ-Vars JSON")

// HeaderMapping maps a recognized message header to its wire field.
type HeaderMapping struct {
	Header string
	Field  string
}

// HeaderTable is an ordered catalog of provider-specific headers.
type HeaderTable []HeaderMapping

var v3Headers = HeaderTable{
	{"X-MJ-TemplateID", "Mj-TemplateID"},
	{"X-MJ-TemplateLanguage", "Mj-TemplateLanguage"},
	{"X-MJ-TemplateErrorReporting", "MJ-TemplateErrorReporting"},
	{"X-MJ-TemplateErrorDeliver", "MJ-TemplateErrorDeliver"},
	{"X-Mailjet-Prio", "Mj-Prio"},
	{"X-Mailjet-Campaign", "Mj-campaign"},
	{"X-Mailjet-DeduplicateCampaign", "Mj-deduplicatecampaign"},
	{"X-Mailjet-TrackOpen", "Mj-trackopen"},
	{"X-Mailjet-TrackClick", "Mj-trackclick"},
	{"X-MJ-CustomID", "Mj-CustomID"},
	{"X-MJ-EventPayLoad", "Mj-EventPayLoad"},
	{VarsHeader, "Vars"},
}

var v31Headers = HeaderTable{
	{"X-MJ-TemplateID", "TemplateID"},
	{"X-MJ-TemplateLanguage", "TemplateLanguage"},
	{"X-MJ-TemplateErrorReporting", "TemplateErrorReporting"},
	{"X-MJ-TemplateErrorDeliver", "TemplateErrorDeliver"},
	{"X-Mailjet-Prio", "Priority"},
	{"X-Mailjet-Campaign", "CustomCampaign"},
	{"X-Mailjet-DeduplicateCampaign", "DeduplicateCampaign"},
	{"X-Mailjet-TrackOpen", "TrackOpens"},
	{"X-Mailjet-TrackClick", "TrackClicks"},
	{"X-MJ-CustomID", "CustomID"},
	{"X-MJ-EventPayLoad", "EventPayload"},
	{"X-MJ-MonitoringCategory", "MonitoringCategory"},
	{VarsHeader, "Variables"},
}

// V3HeaderTable returns the header catalog of the v3 send API.
func V3HeaderTable() HeaderTable {
	return append(HeaderTable(nil), v3Headers...)
}

// V31HeaderTable returns the header catalog of the v3.1 send API.
func V31HeaderTable() HeaderTable {
	return append(HeaderTable(nil), v31Headers...)
}

// ExtractProviderHeaders consumes every header of table found in headers,
// in table order, and returns the wire fields they map to. Matching is exact
// on the header name. Matched headers are removed from headers.
//
// The returned fields are complete even when err is non-nil; err only wraps
// ErrInvalidVars.
func ExtractProviderHeaders(headers *email.HeaderSet, table HeaderTable) (map[string]any, error) {
	fields := make(map[string]any)
	var varsErr error
	for _, m := range table {
		h, ok := headers.Get(m.Header)
		if !ok || h.Name != m.Header {
			continue
		}

		value := h.Value
		if s, isString := value.(string); isString && m.Header == VarsHeader {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err != nil {
				varsErr = fmt.Errorf("%w: %v", ErrInvalidVars, err)
				decoded = nil
			}
			value = decoded
		}

		fields[m.Field] = value
		headers.Remove(m.Header)
	}
	return fields, varsErr
}

// ExtractUserHeaders returns the field bodies of every header whose name
// starts with "X-".
func ExtractUserHeaders(headers *email.HeaderSet) map[string]string {
	user := make(map[string]string)
	for _, h := range headers.All() {
		if strings.HasPrefix(h.Name, "X-") {
			user[h.Name] = h.String()
		}
	}
	return user
}

// splitHeaders runs both extractions on a copy of the message headers so the
// caller's message is left untouched. Invalid X-MJ-Vars JSON is logged and
// sent as null.
func splitHeaders(msg *email.Message, table HeaderTable, logger *slog.Logger) (map[string]any, map[string]string) {
	headers := msg.Headers().Clone()
	fields, err := ExtractProviderHeaders(headers, table)
	if err != nil {
		logger.Warn("sending template variables as null",
			"subject", msg.Subject,
			"error", err,
		)
	}
	return fields, ExtractUserHeaders(headers)
}
