package world

import (
	"fmt"
	"strconv"
	"strings"

	"corenet/pkg/types"
)

// ParseLocation reads the "context@x,y,z" form produced by types.Location.String.
func ParseLocation(s string) (types.Location, error) {
	ctx, coords, ok := strings.Cut(strings.TrimSpace(s), "@")
	if !ok || ctx == "" {
		return types.Location{}, fmt.Errorf("invalid location %q (expected context@x,y,z)", s)
	}

	parts := strings.Split(coords, ",")
	if len(parts) != 3 {
		return types.Location{}, fmt.Errorf("invalid location %q: need 3 coordinates, got %d", s, len(parts))
	}

	var xyz [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return types.Location{}, fmt.Errorf("invalid location %q: %w", s, err)
		}
		xyz[i] = v
	}

	return types.Location{Context: ctx, X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
