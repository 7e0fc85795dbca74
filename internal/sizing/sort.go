package sizing

import (
	"cmp"
	"slices"

	"github.com/mynest/mediasniff/internal/model"
)

// SortBySize orders resources largest first. Unknown sizes (0) end up last
// and resources of equal size keep their relative order.
func SortBySize(resources []*model.MediaResource) {
	slices.SortStableFunc(resources, func(a, b *model.MediaResource) int {
		return cmp.Compare(b.Size, a.Size)
	})
}

// IsSortedBySize reports whether resources are in SortBySize order.
func IsSortedBySize(resources []*model.MediaResource) bool {
	for i := 1; i < len(resources); i++ {
		if resources[i-1].Size < resources[i].Size {
			return false
		}
	}
	return true
}
