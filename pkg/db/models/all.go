package models

// All lists every persisted model in dependency order. Used for SQLite
// auto-migration in development and tests.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Notification{},
		&OutboxEvent{},
	}
}
