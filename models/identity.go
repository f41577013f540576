package models

// User roles as the backend encodes them.
const (
	RoleStudent = 0
	RoleTeacher = 1
	RoleAdmin   = 9
)

// Teacher verification states.
const (
	VerifyNotSubmitted = 0
	VerifyPending      = 1
	VerifyApproved     = 2
	VerifyRejected     = 3
)

// Identity is the authenticated user's account state. It is owned by the
// session store; everything else receives it by value and never mutates it.
type Identity struct {
	UserID          int64  `json:"id"`
	Username        string `json:"username"`
	DisplayName     string `json:"nickname"`
	AvatarRef       string `json:"avatar"`
	Role            int    `json:"role"`
	CredentialToken string `json:"-"`
}

// IsTeacher reports whether the identity carries the teacher role.
func (id Identity) IsTeacher() bool {
	return id.Role == RoleTeacher
}

// TeacherProfile is the identity-verification record of a teacher account.
type TeacherProfile struct {
	RealName     string `json:"real_name"`
	VerifyStatus int    `json:"verify_status"`
	RejectReason string `json:"reject_reason"`
}
