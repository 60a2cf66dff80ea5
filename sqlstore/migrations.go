package sqlstore

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "create users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				user_id TEXT PRIMARY KEY,
				id_number TEXT UNIQUE NOT NULL,
				username TEXT UNIQUE NOT NULL,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				first_name TEXT DEFAULT '',
				middle_name TEXT DEFAULT '',
				last_name TEXT DEFAULT '',
				name_extension TEXT DEFAULT '',
				birthdate TEXT DEFAULT '',
				age INTEGER DEFAULT 0,
				sex TEXT DEFAULT '',
				address TEXT DEFAULT '',
				failed_login_attempts INTEGER NOT NULL DEFAULT 0,
				lockout_until INTEGER,
				created_at INTEGER NOT NULL
			)
		`,
	},
	{
		name: "create security questions table",
		sql: `
			CREATE TABLE IF NOT EXISTS security_questions (
				user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
				slot INTEGER NOT NULL,
				question_id TEXT NOT NULL,
				answer_hash TEXT NOT NULL,
				PRIMARY KEY (user_id, slot)
			)
		`,
	},
	{
		name: "index identifiers",
		sql: `
			CREATE INDEX IF NOT EXISTS idx_users_id_number ON users(id_number);
		`,
	},
}
