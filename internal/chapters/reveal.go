package chapters

import (
	"context"
	"fmt"
)

// Direction of the "reveal more" control to press next.
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	default:
		return "none"
	}
}

// PickDirection decides which reveal control to press based on where the
// requested ordinals sit relative to the visible span. Targets entirely
// below the visible minimum are revealed downward, above the maximum upward;
// inside the span the nearer half wins.
func PickDirection(targets []int, minVisible, maxVisible int) Direction {
	if len(targets) == 0 {
		return DirNone
	}

	lo, hi := targets[0], targets[0]
	for _, t := range targets[1:] {
		if t < lo {
			lo = t
		}
		if t > hi {
			hi = t
		}
	}

	switch {
	case hi < minVisible:
		return DirDown
	case lo > maxVisible:
		return DirUp
	default:
		mid := (minVisible + maxVisible) / 2
		if lo <= mid {
			return DirDown
		}
		return DirUp
	}
}

// Revealer is the browser side of incremental map construction.
type Revealer interface {
	// Snapshot returns the content page's current outer HTML.
	Snapshot(ctx context.Context) (string, error)
	// Reveal presses the reveal-more control for the given direction. It
	// returns false when no such control is present.
	Reveal(ctx context.Context, dir Direction) (bool, error)
}

type RevealOptions struct {
	MaxRounds   int
	StopOnMatch bool
}

// BuildIncrementally grows the map until the requested ordinals resolve or
// the list stops growing. No reveal click is issued when the initial
// snapshot already satisfies the request.
func BuildIncrementally(
	ctx context.Context,
	rev Revealer,
	m *Map,
	titleID string,
	targets []int,
	opts RevealOptions,
) error {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 100
	}

	html, err := rev.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := m.ParseContentHTML(html, titleID); err != nil {
		return err
	}

	if len(targets) > 0 && m.HasOrdinals(targets) && opts.StopOnMatch {
		return nil
	}

	stalled := 0
	for round := 0; round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if len(targets) > 0 && m.HasOrdinals(targets) && opts.StopOnMatch {
			return nil
		}

		dir := DirDown
		if minV, maxV, ok := m.OrdinalRange(); ok && len(targets) > 0 {
			dir = PickDirection(targets, minV, maxV)
		}
		if dir == DirNone {
			return nil
		}

		clicked, err := rev.Reveal(ctx, dir)
		if err != nil {
			return err
		}
		if !clicked {
			// Try the opposite control once before giving up on the round.
			opposite := DirUp
			if dir == DirUp {
				opposite = DirDown
			}
			if clicked, err = rev.Reveal(ctx, opposite); err != nil {
				return err
			}
			if !clicked {
				return nil
			}
		}

		before := m.Len()
		html, err := rev.Snapshot(ctx)
		if err != nil {
			return err
		}
		if err := m.ParseContentHTML(html, titleID); err != nil {
			return err
		}

		if m.Len() == before {
			stalled++
			if stalled >= 3 {
				return nil
			}
		} else {
			stalled = 0
		}
	}

	return nil
}

// ResolveOrdinals maps requested ordinals to refs, preserving request order.
// Unresolved ordinals come back separately for SKIP reporting.
func ResolveOrdinals(m *Map, ordinals []int) (found []Ref, missing []int) {
	for _, o := range ordinals {
		if r, ok := m.ByOrdinal(o); ok {
			found = append(found, r)
		} else {
			missing = append(missing, o)
		}
	}
	return
}

// ResolveVolumeOrdinals resolves (volume, ordinal) pairs: for each requested
// volume every requested ordinal is looked up under it.
func ResolveVolumeOrdinals(m *Map, volumes, ordinals []int) (found []Ref, missing []string) {
	for _, v := range volumes {
		for _, o := range ordinals {
			if r, ok := m.ByVolumeOrdinal(v, o); ok {
				found = append(found, r)
			} else {
				missing = append(missing, fmt.Sprintf("%d권 %d화", v, o))
			}
		}
	}
	return
}
