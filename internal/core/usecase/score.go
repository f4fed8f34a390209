package usecase

import "math"

// popularityScore derives the popularity metric of a user from its own hobby
// set and the hobby sets of its neighbors:
//
//	score = |friends| + 0.5 * Σ shared(user, friend)
//
// rounded to one decimal place, half away from zero. The function is pure:
// it depends only on its inputs and is recomputed fresh on every read.
func popularityScore(hobbies []string, friendHobbies [][]string) float64 {
	if len(friendHobbies) == 0 {
		return 0
	}

	totalShared := 0
	for _, fh := range friendHobbies {
		totalShared += sharedHobbies(hobbies, fh)
	}

	raw := float64(len(friendHobbies)) + 0.5*float64(totalShared)
	return math.Round(raw*10) / 10
}

// sharedHobbies counts the hobbies present in both sets. Inputs are already
// deduplicated on write, so every overlap counts exactly once.
func sharedHobbies(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, h := range b {
		set[h] = struct{}{}
	}
	shared := 0
	for _, h := range a {
		if _, ok := set[h]; ok {
			shared++
		}
	}
	return shared
}

// dedupeHobbies collapses duplicates keeping the first occurrence, so hobby
// sets behave as sets even when callers submit repeated entries.
func dedupeHobbies(hobbies []string) []string {
	deduped := make([]string, 0, len(hobbies))
	seen := make(map[string]struct{}, len(hobbies))
	for _, h := range hobbies {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		deduped = append(deduped, h)
	}
	return deduped
}
