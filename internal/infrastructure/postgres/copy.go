package postgres

import (
	"reflect"
	"strings"
)

// copyFields overwrites dst with every exported field of src except the
// primary key, the creation timestamp and associations. Associations are
// never written by SaveChanges, so dst keeps whatever was eager-loaded.
func copyFields[T any](dst, src *T) {
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src).Elem()
	t := dv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Name == "CreatedAt" {
			continue
		}
		tag := f.Tag.Get("gorm")
		if strings.Contains(tag, "primaryKey") || strings.Contains(tag, "foreignKey") {
			continue
		}
		dv.Field(i).Set(sv.Field(i))
	}
}
