package entity

import (
	"encoding/json"
	"strconv"
	"strings"
)

// OffenseStatus is the lifecycle status of a QRadar offense
type OffenseStatus string

const (
	OffenseStatusOpen   OffenseStatus = "OPEN"
	OffenseStatusHidden OffenseStatus = "HIDDEN"
	OffenseStatusClosed OffenseStatus = "CLOSED"
)

// ParseOffenseStatus accepts a status in any letter case
func ParseOffenseStatus(s string) (OffenseStatus, bool) {
	switch status := OffenseStatus(strings.ToUpper(s)); status {
	case OffenseStatusOpen, OffenseStatusHidden, OffenseStatusClosed:
		return status, true
	}
	return "", false
}

// Offense is a QRadar offense. The document is kept exactly as the API sent
// it, nulls and key set included; only the id is decoded.
type Offense struct {
	ID  int64
	raw json.RawMessage
}

// UnmarshalJSON keeps the offense document verbatim
func (o *Offense) UnmarshalJSON(data []byte) error {
	var known struct {
		ID int64 `json:"id"`
	}
	if _, err := splitRecord(data, &known, nil); err != nil {
		return err
	}

	*o = Offense{
		ID:  known.ID,
		raw: append(json.RawMessage(nil), data...),
	}
	return nil
}

// MarshalJSON returns the document as received. An offense built in code
// without one encodes as just its id.
func (o Offense) MarshalJSON() ([]byte, error) {
	if len(o.raw) == 0 {
		return json.Marshal(map[string]int64{"id": o.ID})
	}
	return o.raw, nil
}

// ClosingReason represents an offense closing reason
type ClosingReason struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// OffenseParams are the module arguments of qradar_offense_info
type OffenseParams struct {
	ID              *int64
	Name            string
	Status          OffenseStatus
	AssignedTo      string
	ClosingReason   string
	ClosingReasonID *int64
	FollowUp        *bool
	Protected       *bool
}

// OffenseQuery is the resolved offense lookup. It is built once by the
// resolver and never modified afterwards.
type OffenseQuery struct {
	id              *int64
	status          OffenseStatus
	assignedTo      string
	closingReasonID *int64
	followUp        *bool
	protected       *bool
}

// NewOffenseQuery creates a query from resolved parameters. closingReasonID
// must already be resolved from a closing reason text when one was given.
func NewOffenseQuery(params OffenseParams, closingReasonID *int64) OffenseQuery {
	return OffenseQuery{
		id:              copyInt64(params.ID),
		status:          params.Status,
		assignedTo:      params.AssignedTo,
		closingReasonID: copyInt64(closingReasonID),
		followUp:        copyBool(params.FollowUp),
		protected:       copyBool(params.Protected),
	}
}

// OffenseID returns the single offense to fetch, if one was requested
func (q OffenseQuery) OffenseID() (int64, bool) {
	if q.id == nil {
		return 0, false
	}
	return *q.id, true
}

// QueryString joins every supplied filter as a literal key=value pair with "&".
// Values are not escaped here; the client escapes them on the wire.
func (q OffenseQuery) QueryString() string {
	var parts []string

	if q.status != "" {
		parts = append(parts, "status="+string(q.status))
	}
	if q.assignedTo != "" {
		parts = append(parts, "assigned_to="+q.assignedTo)
	}
	if q.closingReasonID != nil {
		parts = append(parts, "closing_reason_id="+strconv.FormatInt(*q.closingReasonID, 10))
	}
	if q.followUp != nil {
		parts = append(parts, "follow_up="+strconv.FormatBool(*q.followUp))
	}
	if q.protected != nil {
		parts = append(parts, "protected="+strconv.FormatBool(*q.protected))
	}

	return strings.Join(parts, "&")
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
