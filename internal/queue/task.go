// Package queue holds the background task model and an in-process FIFO.
package queue

import (
	"fmt"

	"github.com/google/uuid"
)

type Kind int

const (
	KindBeginPurge Kind = iota + 1
	KindResolveImage
	KindCheckImageLiveness
)

var kindNames = map[Kind]string{
	KindBeginPurge:         "begin_purge",
	KindResolveImage:       "resolve_image",
	KindCheckImageLiveness: "check_image_liveness",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown task kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown task kind %q", string(text))
}

// Task is a tagged union: BeginPurge carries EntryID, the image kinds carry
// ImageID. Tasks are comparable so the queue can drop duplicates.
type Task struct {
	Kind    Kind      `json:"kind"`
	EntryID uuid.UUID `json:"entry_id,omitzero"`
	ImageID int64     `json:"image_id,omitempty"`
}

func BeginPurge(entryID uuid.UUID) Task {
	return Task{Kind: KindBeginPurge, EntryID: entryID}
}

func ResolveImage(imageID int64) Task {
	return Task{Kind: KindResolveImage, ImageID: imageID}
}

func CheckImageLiveness(imageID int64) Task {
	return Task{Kind: KindCheckImageLiveness, ImageID: imageID}
}

func (t Task) String() string {
	if t.Kind == KindBeginPurge {
		return fmt.Sprintf("%s(%s)", t.Kind, t.EntryID)
	}
	return fmt.Sprintf("%s(%d)", t.Kind, t.ImageID)
}
