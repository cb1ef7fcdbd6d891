package domain

// Repository represents a GitHub repository discovered during a pass
type Repository struct {
	Org       string
	Name      string
	FullName  string
	IsPrivate bool
}

// Contributor represents a GitHub contributor within one repository
type Contributor struct {
	Login         string
	Contributions int
}
