package meta

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ObjectMeta is metadata that all persisted resources carry. Every field is
// read-only from the API's point of view: values supplied by clients are
// discarded by the serializer.
type ObjectMeta struct {
	// ID is the primary key of the object.
	ID uint `gorm:"primaryKey" json:"id"`
	// UID is the unique in time and space value for this object.
	UID string `gorm:"type:char(36);uniqueIndex" json:"uid"`
	// ResourceVersion identifies the internal version of this object and can
	// be used by clients to determine when objects have changed.
	ResourceVersion int `gorm:"column:resource_version;not null" json:"resourceVersion"`
	// CreatedAt is the server time when this object was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the server time when this object was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Object is implemented by every type embedding BaseResource.
type Object interface {
	GetObjectMeta() *ObjectMeta
}

// Summarizer is implemented by resources whose list representation is
// narrower than their detail representation.
type Summarizer interface {
	Summary() any
}

// UniqueField names a column whose value must not repeat across rows.
type UniqueField struct {
	// Name is the JSON field name used when reporting a conflict.
	Name string
	// Column is the database column checked.
	Column string
	Value  any
}

// Unique is implemented by resources with unique fields that should be
// reported as validation errors instead of storage errors.
type Unique interface {
	UniqueFields() []UniqueField
}

// Named is implemented by resources that provide a human-readable name for
// messages.
type Named interface {
	VerboseName() string
}

// ResourceValidator is implemented by resources with checks that struct tags
// cannot express. A FieldErrors result is merged into the field errors of the
// request; any other error is returned as is.
type ResourceValidator interface {
	Validate() error
}

// FieldErrors maps a JSON field name to its validation messages.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s: %s", fields[0], e[fields[0]][0])
}

// Add appends a message for field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// BaseResource is the base type that all resources should embed
type BaseResource struct {
	ObjectMeta
}

// GetObjectMeta returns a pointer to the embedded metadata.
func (b *BaseResource) GetObjectMeta() *ObjectMeta {
	return &b.ObjectMeta
}

// BeforeCreate is a GORM hook that runs before creating a resource
func (b *BaseResource) BeforeCreate(tx *gorm.DB) error {
	if b.UID == "" {
		b.UID = uuid.New().String()
	}
	if b.ResourceVersion == 0 {
		b.ResourceVersion = 1
	}
	return nil
}

// BeforeUpdate is a GORM hook that runs before updating a resource
func (b *BaseResource) BeforeUpdate(tx *gorm.DB) error {
	b.ResourceVersion++
	return nil
}
