package migrations

import "github.com/go-rel/rel"

func MigrateCreateSharedAttributes(schema *rel.Schema) {
	schema.CreateTable("shared_attributes", func(t *rel.Table) {
		t.ID("id")
		t.String("attribute_id")
		t.Int("consent")
		t.ForeignKey("consent", "consents", "id")
	})
}

func RollbackCreateSharedAttributes(schema *rel.Schema) {
	schema.DropTable("shared_attributes")
}
