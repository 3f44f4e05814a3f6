// Package typemap converts between annotation labels and obstacle categories.
package typemap

import (
	iface "ObstacleVisServer/interface"
	"sort"
	"strings"
)

// aliases accepts both the native labels and the KITTI class names.
var aliases = map[string]iface.Category{
	"unknown":           iface.Unknown,
	"unknown_movable":   iface.UnknownMovable,
	"unknown_unmovable": iface.UnknownUnmovable,
	"pedestrian":        iface.Pedestrian,
	"bicycle":           iface.Bicycle,
	"vehicle":           iface.Vehicle,
	"bus":               iface.Vehicle,
	"car":               iface.Vehicle,
	"cyclist":           iface.Bicycle,
	"dontcare":          iface.Unknown,
	"misc":              iface.Unknown,
	"person_sitting":    iface.Pedestrian,
	"tram":              iface.Vehicle,
	"truck":             iface.Vehicle,
	"van":               iface.Vehicle,
}

// CategoryFromLabel never fails: unrecognized labels are Unknown.
func CategoryFromLabel(label string) iface.Category {
	if c, ok := aliases[strings.ToLower(label)]; ok {
		return c
	}
	return iface.Unknown
}

// LabelFromCategory is not the inverse of CategoryFromLabel: synonyms collapse
// to one label, and every unknown variant is written as "unknown".
func LabelFromCategory(c iface.Category) string {
	switch c {
	case iface.Vehicle:
		return "car"
	case iface.Pedestrian:
		return "pedestrian"
	case iface.Bicycle:
		return "bicycle"
	}
	return "unknown"
}

func Aliases() []string {
	out := make([]string, 0, len(aliases))
	for k := range aliases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
