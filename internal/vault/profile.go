package vault

import "github.com/tonhe/fritzmon/internal/fritz"

// Profile is a saved router login.
type Profile struct {
	Name      string `json:"name"`
	BaseURL   string `json:"base_url"`
	LoginPath string `json:"login_path,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password"`
}

// Summary is a Profile without its password.
type Summary struct {
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	Username string `json:"username,omitempty"`
}

func (p *Profile) Summarize() Summary {
	return Summary{Name: p.Name, BaseURL: p.BaseURL, Username: p.Username}
}

// Credentials converts the profile into router credentials with defaults
// applied to empty fields.
func (p *Profile) Credentials() fritz.Credentials {
	return fritz.Credentials{
		BaseURL:   p.BaseURL,
		LoginPath: p.LoginPath,
		Username:  p.Username,
		Password:  p.Password,
	}.WithDefaults()
}

// Provider is implemented by profile storage backends.
type Provider interface {
	List() ([]Summary, error)
	Get(name string) (*Profile, error)
	Add(p Profile) error
	Update(name string, p Profile) error
	Remove(name string) error
}
