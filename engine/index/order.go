package index

import (
	"strconv"
	"strings"
)

// rolloverLess orders index_YYYYMMDD.html before index_YYYYMMDD_2.html
// before index_YYYYMMDD_10.html.
func rolloverLess(a, b string) bool {
	da, na := splitRollover(a)
	db, nb := splitRollover(b)
	if da != db {
		return da < db
	}
	return na < nb
}

func splitRollover(name string) (string, int) {
	name = strings.TrimSuffix(strings.TrimPrefix(name, "index_"), ".html")
	day, num, found := strings.Cut(name, "_")
	if !found {
		return day, 0
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return day, 0
	}
	return day, n
}
