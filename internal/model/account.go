package model

type Prefix string

const (
	PrefixNone Prefix = ""
	PrefixDr   Prefix = "Dr."
	PrefixDra  Prefix = "Dra."
)

type AccountType string

const (
	AccountTypeEmployee     AccountType = "employee"
	AccountTypeAssocDoctor  AccountType = "assoc_doctor"
	AccountTypeClinicDoctor AccountType = "clinic_doctor"
)

// Role names carried in access tokens.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleDoctor   = "doctor"
)

type Account struct {
	ID                 int64   `json:"id" db:"id"`
	Email              string  `json:"email" db:"email"`
	FirstName          string  `json:"first_name" db:"first_name"`
	LastName           string  `json:"last_name" db:"last_name"`
	MiddleInitial      string  `json:"middle_initial" db:"middle_initial"`
	Prefix             Prefix  `json:"prefix" db:"prefix"`
	MobileNumber       string  `json:"mobile_number" db:"mobile_number"`
	PasswordHash       string  `json:"-" db:"password_hash"`
	IsSuperuser        bool    `json:"is_superuser" db:"is_superuser"`
	IsEmployee         bool    `json:"is_employee" db:"is_employee"`
	IsAssociatedDoctor bool    `json:"is_associated_doctor" db:"is_associated_doctor"`
	IsClinicDoctor     bool    `json:"is_clinic_doctor" db:"is_clinic_doctor"`
	ImagePath          *string `json:"image_path,omitempty" db:"image_path"`
	SignaturePath      *string `json:"signature_path,omitempty" db:"signature_path"`
	Timestamps
}

func (a *Account) FullNameWithMiddleInitial() string {
	return FullName(a.FirstName, a.MiddleInitial, a.LastName)
}

func (a *Account) IsDoctor() bool {
	return a.IsAssociatedDoctor || a.IsClinicDoctor
}

// Roles lists the token roles granted to the account.
func (a *Account) Roles() []string {
	var roles []string
	if a.IsSuperuser {
		roles = append(roles, RoleAdmin)
	}
	if a.IsEmployee {
		roles = append(roles, RoleEmployee)
	}
	if a.IsDoctor() {
		roles = append(roles, RoleDoctor)
	}
	return roles
}

// ApplyType sets the role flags for t.
func (a *Account) ApplyType(t AccountType) {
	a.IsEmployee = t == AccountTypeEmployee
	a.IsAssociatedDoctor = t == AccountTypeAssocDoctor
	a.IsClinicDoctor = t == AccountTypeClinicDoctor
}

// CreateAccountRequest carries images as data URLs under image/signature in
// JSON and image_data/signature_data in forms; multipart files go under
// image/signature.
type CreateAccountRequest struct {
	Email           string `json:"email" form:"email" binding:"required,email,max=254"`
	FirstName       string `json:"first_name" form:"first_name" binding:"required,max=50"`
	LastName        string `json:"last_name" form:"last_name" binding:"required,max=50"`
	MiddleInitial   string `json:"middle_initial" form:"middle_initial" binding:"max=1"`
	Prefix          string `json:"prefix" form:"prefix" binding:"prefix"`
	MobileNumber    string `json:"mobile_number" form:"mobile_number" binding:"max=15"`
	AccountType     string `json:"account_type" form:"account_type" binding:"required,account_type"`
	Password        string `json:"password" form:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"required"`
	Image           string `json:"image" form:"image_data" binding:"omitempty,data_url"`
	Signature       string `json:"signature" form:"signature_data" binding:"omitempty,data_url"`
}

type UpdateAccountRequest struct {
	Email           *string `json:"email" form:"email" binding:"omitempty,email,max=254"`
	FirstName       *string `json:"first_name" form:"first_name" binding:"omitempty,max=50"`
	LastName        *string `json:"last_name" form:"last_name" binding:"omitempty,max=50"`
	MiddleInitial   *string `json:"middle_initial" form:"middle_initial" binding:"omitempty,max=1"`
	Prefix          *string `json:"prefix" form:"prefix" binding:"omitempty,prefix"`
	MobileNumber    *string `json:"mobile_number" form:"mobile_number" binding:"omitempty,max=15"`
	AccountType     *string `json:"account_type" form:"account_type" binding:"omitempty,account_type"`
	ChangePassword  bool    `json:"change_password" form:"change_password"`
	Password        string  `json:"password" form:"password"`
	ConfirmPassword string  `json:"confirm_password" form:"confirm_password"`
	Image           string  `json:"image" form:"image_data" binding:"omitempty,data_url"`
	Signature       string  `json:"signature" form:"signature_data" binding:"omitempty,data_url"`
}

type AccountFilter struct {
	Role string `form:"role" binding:"omitempty,oneof=employee associated_doctor clinic_doctor"`
}
