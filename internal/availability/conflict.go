package availability

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type BlockKind string

const (
	BlockKindPrimary BlockKind = "primary"
	BlockKindAddOn   BlockKind = "addon"
	BlockKindTravel  BlockKind = "travel"
)

// Block is a time-bound unit of a professional's work.
type Block struct {
	ID             string
	AppointmentID  uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	Kind           BlockKind
	// AddOnIndex is the add-on's position in the appointment, -1 otherwise.
	AddOnIndex int
	Start      time.Time
	End        time.Time
}

func (b Block) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// Shift returns b moved by d.
func (b Block) Shift(d time.Duration) Block {
	b.Start = b.Start.Add(d)
	b.End = b.End.Add(d)
	return b
}

func PrimaryBlockID(appointmentID uuid.UUID) string {
	return appointmentID.String() + ":primary"
}

func AddOnBlockID(appointmentID uuid.UUID, index int) string {
	return appointmentID.String() + ":addon:" + strconv.Itoa(index)
}

func TravelBlockID(appointmentID uuid.UUID, index int) string {
	return appointmentID.String() + ":travel:" + strconv.Itoa(index)
}

// ProposedBlockID identifies an interval that is not yet booked.
const ProposedBlockID = "proposed"

// Overlaps reports whether two blocks share time. Travel blocks never overlap
// anything and a block never overlaps itself.
func Overlaps(a, b Block) bool {
	if a.Kind == BlockKindTravel || b.Kind == BlockKindTravel {
		return false
	}
	if a.ID != "" && a.ID == b.ID {
		return false
	}
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

type BlockSet map[string]struct{}

func (s BlockSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s BlockSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FindOverlaps returns the ids of blocks taking part in at least one overlap.
// blocks are expected to belong to a single professional; it detects only and
// never rejects.
func FindOverlaps(blocks []Block) BlockSet {
	out := make(BlockSet)
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			if Overlaps(blocks[i], blocks[j]) {
				out[blocks[i].ID] = struct{}{}
				out[blocks[j].ID] = struct{}{}
			}
		}
	}
	return out
}

// ConflictsWith returns the ids of existing blocks that overlap proposed, in
// existing order.
func ConflictsWith(proposed Block, existing []Block) []string {
	var out []string
	for _, e := range existing {
		if Overlaps(proposed, e) {
			out = append(out, e.ID)
		}
	}
	return out
}
