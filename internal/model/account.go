package model

// AccountKind identifies the mailbox protocol used by an account.
type AccountKind string

const (
	AccountKindGmail AccountKind = "gmail"
	AccountKindIMAP  AccountKind = "imap"
)

// MailAccount is a mailbox the analyzer may query.
type MailAccount struct {
	// ID is the internal unique identifier for this account.
	ID string `mapstructure:"id" yaml:"id" json:"id"`

	// Kind identifies the mailbox protocol (use AccountKind* constants).
	Kind AccountKind `mapstructure:"kind" yaml:"kind" json:"kind"`

	// Email is the mailbox address, used for logging and display.
	Email string `mapstructure:"email" yaml:"email" json:"email"`

	// Enabled controls whether this account is queried during runs.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// IMAPHost, IMAPPort, IMAPTLS, and Username configure the server
	// connection for imap-kind accounts. Gmail accounts ignore them.
	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host" json:"imap_host,omitempty"`
	IMAPPort int    `mapstructure:"imap_port" yaml:"imap_port" json:"imap_port,omitempty"`
	IMAPTLS  bool   `mapstructure:"imap_tls" yaml:"imap_tls" json:"imap_tls,omitempty"`
	Username string `mapstructure:"username" yaml:"username" json:"username,omitempty"`
}
