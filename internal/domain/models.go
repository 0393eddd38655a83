package domain

// Models AutoMigrate 的模型集合（顺序即建表顺序）
func Models() []any {
	return []any{&User{}, &Item{}, &Conversation{}, &Message{}, &Notification{}}
}
