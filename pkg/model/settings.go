package model

// FirestoreConfig is the document-store connection descriptor.
type FirestoreConfig struct {
	APIKey     string `json:"apiKey" yaml:"api_key" mapstructure:"api_key"`
	AuthDomain string `json:"authDomain" yaml:"auth_domain" mapstructure:"auth_domain"`
	ProjectID  string `json:"projectId" yaml:"project_id" mapstructure:"project_id"`
	AppID      string `json:"appId" yaml:"app_id" mapstructure:"app_id"`
}

// Configured reports whether the descriptor carries enough to reach
// the document store.
func (c FirestoreConfig) Configured() bool {
	return c.ProjectID != "" && c.APIKey != ""
}

// SheetsConfig identifies the spreadsheet backend.
type SheetsConfig struct {
	SpreadsheetID string `json:"spreadsheetId" yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	AccessToken   string `json:"accessToken" yaml:"access_token" mapstructure:"access_token"`
}

// Configured reports whether the spreadsheet backend is reachable.
func (c SheetsConfig) Configured() bool {
	return c.SpreadsheetID != "" && c.AccessToken != ""
}

// AppSettings is the process-wide configuration record. It is loaded
// wholesale at startup and replaced wholesale on save; the sync engine
// never partially mutates it.
type AppSettings struct {
	Firestore FirestoreConfig `json:"firestore" yaml:"firestore" mapstructure:"firestore"`
	Sheets    SheetsConfig    `json:"sheets" yaml:"sheets" mapstructure:"sheets"`
}
