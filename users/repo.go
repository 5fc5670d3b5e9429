package users

// UserRepo stores user records together with their password hash. Only the
// in-memory API backend uses it; the console itself never sees hashes.
type UserRepo interface {
	Upsert(user *User, passwordHash string) error
	GetByEmail(email string) (*User, string, error)
	GetByID(ID string) (*User, error)
	List() ([]*User, error)
}
