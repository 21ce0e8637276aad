package identity

// User maps to the usuario table. The role is stored as a string-typed code
// ("1" = admin); normalization happens in auth.RoleFromCode, never against
// the raw value.
type User struct {
	ID           int64  `db:"idUsuario" json:"idUsuario"`
	Name         string `db:"nombre" json:"nombre"`
	PasswordHash string `db:"contrasena" json:"-"`
	RoleCode     string `db:"tipo_usuario" json:"tipo_usuario"`
}

// Patient maps to the pacientes table. UserID links the patient to the
// standard user that owns it; admins have no link.
type Patient struct {
	ID       int64  `db:"idPaciente" json:"idPaciente"`
	FullName string `db:"nombreCompleto" json:"nombreCompleto"`
	UserID   *int64 `db:"idUsuario" json:"idUsuario,omitempty"`
}
