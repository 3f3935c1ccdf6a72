package entity

import (
	"encoding/json"
	"strconv"
)

// IdentifierParameterName is the protocol parameter that holds the host or IP
// identifying a log source
const IdentifierParameterName = "identifier"

// State is the desired presence of a resource
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// ProtocolParameter represents one protocol setting of a log source. Keys
// other than id, name and value are kept in Extra.
type ProtocolParameter struct {
	ID    int64
	Name  string
	Value json.RawMessage
	Extra map[string]json.RawMessage
}

var protocolParameterKnownKeys = []string{"id", "name", "value"}

// UnmarshalJSON decodes a protocol parameter, keeping unknown fields
func (p *ProtocolParameter) UnmarshalJSON(data []byte) error {
	var known struct {
		ID    int64           `json:"id"`
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	extra, err := splitRecord(data, &known, protocolParameterKnownKeys)
	if err != nil {
		return err
	}

	*p = ProtocolParameter{
		ID:    known.ID,
		Name:  known.Name,
		Value: known.Value,
		Extra: extra,
	}
	return nil
}

// MarshalJSON encodes the parameter, extras included
func (p ProtocolParameter) MarshalJSON() ([]byte, error) {
	return mergeRecord(p.Extra, map[string]interface{}{
		"id":    p.ID,
		"name":  p.Name,
		"value": p.Value,
	})
}

// NewIdentifierParameter builds the identifier protocol parameter
func NewIdentifierParameter(protocolTypeID int64, identifier string) ProtocolParameter {
	value, _ := json.Marshal(identifier)
	return ProtocolParameter{
		ID:    protocolTypeID,
		Name:  IdentifierParameterName,
		Value: value,
	}
}

// StringValue returns the parameter value as text. Non-string JSON values are
// returned in their literal form, null as the empty string.
func (p ProtocolParameter) StringValue() string {
	if len(p.Value) == 0 || string(p.Value) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Value, &s); err == nil {
		return s
	}
	return string(p.Value)
}

// LogSourceRecord represents a QRadar log source as returned by the
// log_source_management API. Fields this module does not manage are kept in
// Extra and written back unchanged.
type LogSourceRecord struct {
	ID                 int64
	Name               string
	Description        *string
	TypeID             int64
	ProtocolParameters []ProtocolParameter
	Extra              map[string]json.RawMessage
}

var logSourceKnownKeys = []string{"id", "name", "description", "type_id", "protocol_parameters"}

// UnmarshalJSON decodes a log source, keeping unknown fields
func (r *LogSourceRecord) UnmarshalJSON(data []byte) error {
	var known struct {
		ID                 int64               `json:"id"`
		Name               string              `json:"name"`
		Description        *string             `json:"description"`
		TypeID             int64               `json:"type_id"`
		ProtocolParameters []ProtocolParameter `json:"protocol_parameters"`
	}
	extra, err := splitRecord(data, &known, logSourceKnownKeys)
	if err != nil {
		return err
	}

	*r = LogSourceRecord{
		ID:                 known.ID,
		Name:               known.Name,
		Description:        known.Description,
		TypeID:             known.TypeID,
		ProtocolParameters: known.ProtocolParameters,
		Extra:              extra,
	}
	return nil
}

// MarshalJSON encodes the full record, extras included
func (r LogSourceRecord) MarshalJSON() ([]byte, error) {
	params := r.ProtocolParameters
	if params == nil {
		params = []ProtocolParameter{}
	}
	return mergeRecord(r.Extra, map[string]interface{}{
		"id":                  r.ID,
		"name":                r.Name,
		"description":         r.Description,
		"type_id":             r.TypeID,
		"protocol_parameters": params,
	})
}

// Clone returns a deep copy of the record
func (r LogSourceRecord) Clone() LogSourceRecord {
	out := r
	if r.Description != nil {
		description := *r.Description
		out.Description = &description
	}
	if r.ProtocolParameters != nil {
		out.ProtocolParameters = make([]ProtocolParameter, len(r.ProtocolParameters))
		for i, p := range r.ProtocolParameters {
			p.Value = append(json.RawMessage(nil), p.Value...)
			p.Extra = cloneExtra(p.Extra)
			out.ProtocolParameters[i] = p
		}
	}
	out.Extra = cloneExtra(r.Extra)
	return out
}

// DescriptionText returns the description, empty when QRadar reports null
func (r LogSourceRecord) DescriptionText() string {
	if r.Description == nil {
		return ""
	}
	return *r.Description
}

// IdentifierParameter finds the identifier protocol parameter and its index.
// The index is -1 when the record has none.
func (r LogSourceRecord) IdentifierParameter() (ProtocolParameter, int) {
	for i, p := range r.ProtocolParameters {
		if p.Name == IdentifierParameterName {
			return p, i
		}
	}
	return ProtocolParameter{}, -1
}

// ProtocolType is one protocol a log source type can be collected with
type ProtocolType struct {
	ProtocolID int64 `json:"protocol_id"`
	Documented bool  `json:"documented,omitempty"`
}

// LogSourceType represents a QRadar log source type
type LogSourceType struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	ProtocolTypes []ProtocolType `json:"protocol_types"`
}

// SupportsProtocol reports whether protocolTypeID is one of the type's protocols
func (t LogSourceType) SupportsProtocol(protocolTypeID int64) bool {
	for _, p := range t.ProtocolTypes {
		if p.ProtocolID == protocolTypeID {
			return true
		}
	}
	return false
}

// LogSourceParams are the module arguments of qradar_log_source_management
type LogSourceParams struct {
	Name           string
	State          State
	TypeName       string
	TypeID         *int64
	Identifier     string
	ProtocolTypeID *int64
	Description    string
}

// TypeFilter returns the filter expression that selects the requested log source type
func (p LogSourceParams) TypeFilter() string {
	if p.TypeName != "" {
		return `name="` + p.TypeName + `"`
	}
	if p.TypeID != nil {
		return `id="` + strconv.FormatInt(*p.TypeID, 10) + `"`
	}
	return ""
}

// DesiredLogSource is the resolved desired state of a log source. It is built
// once by the resolver and never modified afterwards.
type DesiredLogSource struct {
	name           string
	description    string
	typeID         int64
	protocolTypeID int64
	identifier     string
}

// NewDesiredLogSource creates the desired state from resolved values
func NewDesiredLogSource(name, description string, typeID, protocolTypeID int64, identifier string) DesiredLogSource {
	return DesiredLogSource{
		name:           name,
		description:    description,
		typeID:         typeID,
		protocolTypeID: protocolTypeID,
		identifier:     identifier,
	}
}

func (d DesiredLogSource) Name() string          { return d.name }
func (d DesiredLogSource) Description() string   { return d.description }
func (d DesiredLogSource) TypeID() int64         { return d.typeID }
func (d DesiredLogSource) ProtocolTypeID() int64 { return d.protocolTypeID }
func (d DesiredLogSource) Identifier() string    { return d.identifier }

// IdentifierParameter returns the identifier protocol parameter of the desired state
func (d DesiredLogSource) IdentifierParameter() ProtocolParameter {
	return NewIdentifierParameter(d.protocolTypeID, d.identifier)
}

// ProtocolParameters returns a fresh copy of the desired protocol parameters
func (d DesiredLogSource) ProtocolParameters() []ProtocolParameter {
	return []ProtocolParameter{d.IdentifierParameter()}
}

// LogSourceCreateRequest is the REST payload for a new log source
type LogSourceCreateRequest struct {
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	TypeID             int64               `json:"type_id"`
	ProtocolTypeID     int64               `json:"protocol_type_id"`
	ProtocolParameters []ProtocolParameter `json:"protocol_parameters"`
}

// RESTData returns the create payload. Module-only arguments such as state,
// type_name and identifier are not part of it.
func (d DesiredLogSource) RESTData() LogSourceCreateRequest {
	return LogSourceCreateRequest{
		Name:               d.name,
		Description:        d.description,
		TypeID:             d.typeID,
		ProtocolTypeID:     d.protocolTypeID,
		ProtocolParameters: d.ProtocolParameters(),
	}
}

// ApplyTo returns a copy of existing with the four managed fields replaced.
// The identifier parameter is replaced at its index, keeping any extra keys
// of that entry, or appended when missing.
func (d DesiredLogSource) ApplyTo(existing LogSourceRecord) LogSourceRecord {
	updated := existing.Clone()

	if current, idx := updated.IdentifierParameter(); idx >= 0 {
		param := d.IdentifierParameter()
		param.Extra = current.Extra
		updated.ProtocolParameters[idx] = param
	} else {
		updated.ProtocolParameters = append(updated.ProtocolParameters, d.IdentifierParameter())
	}

	description := d.description
	updated.Name = d.name
	updated.TypeID = d.typeID
	updated.Description = &description

	return updated
}
