package irc

type Config struct {
	ServerName          string     `yaml:"ServerName" validate:"required,excludesall= *>"`            // Name used as the source of numerics and notices, and as the link origin
	Description         string     `yaml:"Description"`                                               // Network name shown in the welcome message
	DefaultReason       string     `yaml:"DefaultReason"`                                             // Reason stored when CBAN is given none
	Opers               []Oper     `yaml:"Opers" validate:"dive"`                                     // Accounts that may use OPER
	Link                LinkConfig `yaml:"Link"`                                                      // Replication link to peer servers
	ReasonDecoding      string     `yaml:"ReasonDecoding" validate:"omitempty,oneof=legacy trailing"` // How replicated ban reasons are decoded
	RejectMalformedBans bool       `yaml:"RejectMalformedBans"`                                       // Drop replicated bans with missing or non-numeric fields
}

type Oper struct {
	Name         string `yaml:"Name" validate:"required"`
	PasswordHash string `yaml:"PasswordHash" validate:"required,bcrypt"`
}

type LinkConfig struct {
	Transport string `yaml:"Transport" validate:"omitempty,oneof=nats redis"`
	URL       string `yaml:"URL" validate:"required_with=Transport"`
	Prefix    string `yaml:"Prefix"`   // Subject or channel prefix shared by all peers
	Password  string `yaml:"Password"` // Redis AUTH password
}

const (
	defaultReason     = "No reason supplied"
	defaultLinkPrefix = "cband"
)

// BanReason returns the reason used when a CBAN is added without one.
func (c Config) BanReason() string {
	if c.DefaultReason == "" {
		return defaultReason
	}
	return c.DefaultReason
}

func (c Config) LinkPrefix() string {
	if c.Link.Prefix == "" {
		return defaultLinkPrefix
	}
	return c.Link.Prefix
}

// BanCodec returns the codec configured for replicated ban lines.
func (c Config) BanCodec() (BanCodec, error) {
	rd, err := ParseReasonDecoding(c.ReasonDecoding)
	if err != nil {
		return BanCodec{}, err
	}

	return BanCodec{ReasonDecoding: rd, Strict: c.RejectMalformedBans}, nil
}
