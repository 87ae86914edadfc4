// Package merge reconciles a locally-held job collection with the
// collection fetched from a remote backend.
//
// The policy is deliberate and asymmetric: the remote set seeds the
// result, then every local field wins over its remote counterpart
// except the image fields, which fall back to the remote value when the
// local copy has none. The spreadsheet backend never carries images, so
// a naive local overwrite would erase images that only exist remotely,
// and a naive remote-wins would erase images never yet synced.
//
// This is a single-pass last-writer-plus-image-preservation rule, not a
// CRDT: concurrent edits to the same job from two sessions between
// syncs are not reconciled beyond it (no vector clocks, no per-field
// timestamps). Known limitation.
package merge

import (
	"sort"

	"github.com/antelabs/bodyshop/pkg/model"
)

// Rule is the precedence applied to one Job field when the same id
// exists in both collections.
type Rule string

const (
	// LocalWins takes the local value unconditionally.
	LocalWins Rule = "local-wins"

	// LocalElseRemote takes the local value when present (non-empty),
	// otherwise falls back to the remote value.
	LocalElseRemote Rule = "local-else-remote"
)

// fieldRules is the per-field precedence table. id and createdAt are
// identity fields: never merged, never mutated.
var fieldRules = map[string]Rule{
	"status":          LocalWins,
	"carDetails":      LocalWins,
	"identifiedParts": LocalWins,
	"manualNotes":     LocalWins,
	"repairType":      LocalWins,
	"intakeImage":     LocalElseRemote,
	"damageImages":    LocalElseRemote,
}

// Policy returns a copy of the per-field precedence table, keyed by the
// field's JSON name. Exposed so the policy is inspectable and testable
// rather than implied by assignment order.
func Policy() map[string]Rule {
	out := make(map[string]Rule, len(fieldRules))
	for k, v := range fieldRules {
		out[k] = v
	}
	return out
}

// Merge combines local and remote into one authoritative collection.
//
// Every id appearing in either input appears exactly once in the
// result: remote-only jobs are retained unchanged, local-only jobs are
// inserted unchanged (created but not yet synced), and jobs present on
// both sides are combined per the field precedence table. The result is
// sorted by createdAt descending. Neither input is mutated.
func Merge(local, remote []model.Job) []model.Job {
	byID := make(map[string]model.Job, len(remote)+len(local))
	order := make([]string, 0, len(remote)+len(local))

	// Remote is the initial truth.
	for _, r := range remote {
		if _, seen := byID[r.ID]; !seen {
			order = append(order, r.ID)
		}
		byID[r.ID] = r.Clone()
	}

	for _, l := range local {
		r, ok := byID[l.ID]
		if !ok {
			byID[l.ID] = l.Clone()
			order = append(order, l.ID)
			continue
		}
		byID[l.ID] = combine(l, r)
	}

	out := make([]model.Job, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})

	return out
}

// combine applies the field precedence table to a job present in both
// collections. The local clone is the base (LocalWins for everything),
// then the LocalElseRemote fields are patched back from remote when the
// local side has no value.
func combine(local, remote model.Job) model.Job {
	out := local.Clone()

	if fieldRules["intakeImage"] == LocalElseRemote && out.IntakeImage == "" {
		out.IntakeImage = remote.IntakeImage
	}
	if fieldRules["damageImages"] == LocalElseRemote && len(out.DamageImages) == 0 {
		out.DamageImages = append([]string(nil), remote.DamageImages...)
	}

	return out
}
