package fs

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// snapshotVersion is written at the top of every snapshot file.
const snapshotVersion = 1

// Record is the on-disk shape of one note. Images holds the codec blob.
type Record struct {
	ID        string     `json:"id" yaml:"id" cbor:"1,keyasint"`
	Title     string     `json:"title,omitempty" yaml:"title,omitempty" cbor:"2,keyasint,omitempty"`
	Body      string     `json:"body,omitempty" yaml:"body,omitempty" cbor:"3,keyasint,omitempty"`
	Images    Blob       `json:"images,omitempty" yaml:"images,omitempty" cbor:"4,keyasint,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at" cbor:"5,keyasint"`
	EditedAt  *time.Time `json:"edited_at,omitempty" yaml:"edited_at,omitempty" cbor:"6,keyasint,omitempty"`
}

type snapshot struct {
	Version int      `json:"version" yaml:"version" cbor:"1,keyasint"`
	Notes   []Record `json:"notes" yaml:"notes" cbor:"2,keyasint"`
}

// Blob is opaque binary data. YAML has no portable binary scalar that
// round-trips through every decoder, so it is written as base64 text.
type Blob []byte

func (b Blob) MarshalYAML() (interface{}, error) {
	return base64.StdEncoding.EncodeToString(b), nil
}

func (b *Blob) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid base64 image blob: %w", err)
	}
	*b = data
	return nil
}

// Serializer defines how a snapshot file is read and written.
type Serializer interface {
	Marshal(records []Record) ([]byte, error)
	Unmarshal(data []byte) ([]Record, error)
}

// DefaultSerializers returns the standard set of serializers, keyed by
// snapshot file extension.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".cbor": NewCBORSerializer(),
		".json": NewJSONSerializer(),
		".yaml": NewYAMLSerializer(),
		".yml":  NewYAMLSerializer(),
	}
}

func checkVersion(s snapshot) ([]Record, error) {
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	return s.Notes, nil
}

// --- CBOR Serializer ---

// CBORSerializer is the default, compact format.
type CBORSerializer struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORSerializer creates a CBOR serializer. Times keep nanosecond precision.
func NewCBORSerializer() *CBORSerializer {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	enc, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("fs: invalid cbor encode options: %v", err))
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("fs: invalid cbor decode options: %v", err))
	}
	return &CBORSerializer{enc: enc, dec: dec}
}

func (s *CBORSerializer) Marshal(records []Record) ([]byte, error) {
	return s.enc.Marshal(snapshot{Version: snapshotVersion, Notes: nonNil(records)})
}

func (s *CBORSerializer) Unmarshal(data []byte) ([]Record, error) {
	var snap snapshot
	if err := s.dec.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid cbor: %w", err)
	}
	return checkVersion(snap)
}

// --- JSON Serializer ---

// JSONSerializer writes indented JSON, useful for inspecting a notebook by hand.
type JSONSerializer struct{}

func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

func (s *JSONSerializer) Marshal(records []Record) ([]byte, error) {
	return json.MarshalIndent(snapshot{Version: snapshotVersion, Notes: nonNil(records)}, "", "  ")
}

func (s *JSONSerializer) Unmarshal(data []byte) ([]Record, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return checkVersion(snap)
}

// --- YAML Serializer ---

type YAMLSerializer struct{}

func NewYAMLSerializer() *YAMLSerializer {
	return &YAMLSerializer{}
}

func (s *YAMLSerializer) Marshal(records []Record) ([]byte, error) {
	return yaml.Marshal(snapshot{Version: snapshotVersion, Notes: nonNil(records)})
}

func (s *YAMLSerializer) Unmarshal(data []byte) ([]Record, error) {
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return checkVersion(snap)
}

func nonNil(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	return records
}
