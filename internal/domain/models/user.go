// internal/domain/models/user.go
package models

// User is a platform customer as returned by the backend. The loan pages
// embed it inside loans and loan users; the users page lists it directly
// with its loan relations loaded.
type User struct {
	ID                               int64   `json:"id"`
	Name                             *string `json:"name,omitempty"`
	UserName                         *string `json:"user_name"`
	FirstName                        *string `json:"first_name"`
	LastName                         *string `json:"last_name"`
	Email                            *string `json:"email"`
	PhoneNumber                      string  `json:"phone_number"`
	IsVerified                       Flag    `json:"is_verified"`
	EmailVerifiedAt                  *string `json:"email_verified_at"`
	FirebaseID                       *string `json:"firebase_id"`
	Image                            *string `json:"image"`
	CoverPhoto                       *string `json:"cover_photo"`
	ProviderID                       *string `json:"provider_id"`
	Provider                         *string `json:"provider"`
	CorporateID                      *Number `json:"corporate_id"`
	WalletBalance                    Number  `json:"wallet_balance"`
	BypassProductQuantityRestriction Flag    `json:"bypass_product_quantity_restriction"`
	Status                           Number  `json:"status"`
	IsActive                         Flag    `json:"is_active"`
	IsSystemUser                     Flag    `json:"is_system_user"`
	UserableType                     *string `json:"userable_type"`
	UserableID                       *string `json:"userable_id"`
	LastActiveAt                     *string `json:"last_active_at"`
	CreatedAt                        string  `json:"created_at"`
	UpdatedAt                        string  `json:"updated_at"`
	DeletedAt                        *string `json:"deleted_at"`

	// Relations loaded by /users/index-users-for-loan.
	LoanUser       *LoanUser       `json:"loan_user,omitempty"`
	Loans          []Loan          `json:"loans,omitempty"`
	FaydaCustomers []FaydaCustomer `json:"fayda_customers,omitempty"`
	Address        *Address        `json:"address,omitempty"`
}

func (u User) EntityID() int64 { return u.ID }

// FullName joins first and last name, falling back to name or user name.
func (u User) FullName() string {
	first, last := Show(u.FirstName), Show(u.LastName)
	switch {
	case first != NotAvailable && last != NotAvailable:
		return first + " " + last
	case first != NotAvailable:
		return first
	case u.Name != nil && *u.Name != "":
		return *u.Name
	default:
		return Show(u.UserName)
	}
}

// Address is the user's delivery address.
type Address struct {
	City         *string `json:"city"`
	SubCity      *string `json:"sub_city"`
	Woreda       *string `json:"woreda"`
	Neighborhood string  `json:"neighborhood"`
	HouseNumber  string  `json:"house_number"`
	Longitude    *string `json:"longitude"`
	Latitude     *string `json:"latitude"`
}

// FaydaCustomer is the national-id verification record linked to a user.
type FaydaCustomer struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Name        string  `json:"name"`
	Email       *string `json:"email"`
	PhoneNumber string  `json:"phone_number"`
	Birthdate   string  `json:"birthdate"`
	Gender      string  `json:"gender"`
	Nationality *string `json:"nationality"`
	IsVerified  Flag    `json:"is_verified"`
	Address     struct {
		Zone   string `json:"zone"`
		Region string `json:"region"`
		Woreda string `json:"woreda"`
	} `json:"address"`
	CreatedAt string `json:"created_at"`
}
