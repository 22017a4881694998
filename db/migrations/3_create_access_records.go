package migrations

import "github.com/go-rel/rel"

func MigrateCreateAccessRecords(schema *rel.Schema) {
	schema.CreateTable("access_records", func(t *rel.Table) {
		t.ID("id")
		t.DateTime("accessed_at")
		t.Int("consent")
		t.ForeignKey("consent", "consents", "id")
	})
}

func RollbackCreateAccessRecords(schema *rel.Schema) {
	schema.DropTable("access_records")
}
