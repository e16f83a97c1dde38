package irc

// Numeric replies used by the server.
const (
	RplWelcome         = "001"
	RplTraceUnknown    = "203"
	RplTraceUser       = "204"
	RplTraceOperator   = "205"
	RplStatsCLine      = "210"
	RplEndOfStats      = "219"
	RplStatsUptime     = "242"
	RplStatsConn       = "250"
	RplYoureOper       = "381"
	ErrCBanned         = "384"
	RplCBanAdded       = "385"
	RplCBanRemoved     = "386"
	ErrNoSuchChannel   = "403"
	ErrUnknownCommand  = "421"
	ErrNoNicknameGiven = "431"
	ErrErroneusNick    = "432"
	ErrNicknameInUse   = "433"
	ErrNotRegistered   = "451"
	ErrNeedMoreParams  = "461"
	ErrPasswdMismatch  = "464"
	ErrNoPrivileges    = "481"
)
