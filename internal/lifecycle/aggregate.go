package lifecycle

import "github.com/zaqqye/exit_slip_backend/internal/models"

// Aggregate collapses items sharing a name into one entry whose quantity is
// the sum, keeping the order in which names first appear.
func Aggregate(items []models.Item) []models.Item {
	out := make([]models.Item, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := index[it.Name]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.Name] = len(out)
		out = append(out, it)
	}
	return out
}
