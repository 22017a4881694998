package migrations

import "github.com/go-rel/rel"

func MigrateCreateConsents(schema *rel.Schema) {
	schema.CreateTable("consents", func(t *rel.Table) {
		t.ID("id")
		t.String("user_id")
		t.String("client_id")
		t.String("token_validity")
		t.DateTime("created_at")
		t.DateTime("last_updated_at")
		t.Unique([]string{"user_id", "client_id"})
	})
}

func RollbackCreateConsents(schema *rel.Schema) {
	schema.DropTable("consents")
}
