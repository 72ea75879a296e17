package auth

// NotInformed replaces every empty profile field
const NotInformed = "Não informado"

// UserProfile is the public view of a user. It never carries the hash.
type UserProfile struct {
	Message   string `json:"message,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CityState string `json:"cityState"`
	UserType  string `json:"userType"`
}

// ProfileFromUser projects the user into a profile with placeholders for
// missing values. A nil user yields a profile made of placeholders.
func ProfileFromUser(user *User, message string) UserProfile {
	if user == nil {
		user = &User{}
	}

	return UserProfile{
		Message:   message,
		FirstName: orNotInformed(user.FirstName),
		LastName:  orNotInformed(user.LastName),
		Email:     orNotInformed(user.Email),
		Phone:     orNotInformed(user.Phone),
		CityState: orNotInformed(user.CityState),
		UserType:  orNotInformed(user.UserType),
	}
}

func orNotInformed(s string) string {
	if s == "" {
		return NotInformed
	}
	return s
}
