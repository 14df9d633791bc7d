package postgres

// notDeleted is the soft-delete guard every read must carry. Rows are never
// physically removed; a set deleted_at hides them from all listings.
func notDeleted(alias string) string {
	if alias == "" {
		return "deleted_at IS NULL"
	}
	return alias + ".deleted_at IS NULL"
}
