package cband

import (
	"cmp"
	"fmt"
	"net"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/relaymesh/cband/irc"
)

const (
	MsgWelcome          = "Welcome to %s, %s"
	MsgYoureOper        = "You are now an IRC operator"
	MsgPasswdMismatch   = "Password incorrect"
	MsgErroneusNick     = "Erroneous nickname"
	MsgNicknameInUse    = "Nickname is already in use"
	MsgNoNicknameGiven  = "No nickname given"
	MsgNoSuchChannel    = "No such channel"
	MsgNotEnoughParams  = "Not enough parameters"
	NoticeOperUp        = "*** %s is now an IRC operator (%s)"
	NoticeOperUpFailure = "*** Failed OPER attempt by %s using account %s"
	MsgTraceOper        = "Oper 0 %s"
	MsgTraceUser        = "User 0 %s"
	MsgTraceUnknown     = "???? 0 [%s]"
)

// RegisterHandlers assigns functions to handle client commands.
func RegisterHandlers(srv *irc.Server) {
	srv.HandleFunc("CAP", HandleIgnore)
	srv.HandleFunc("CBAN", HandleCBan)
	srv.HandleFunc("JOIN", HandleJoin)
	srv.HandleFunc("NICK", HandleNick)
	srv.HandleFunc("OPER", HandleOper)
	srv.HandleFunc("PING", HandlePing)
	srv.HandleFunc("QUIT", HandleIgnore)
	srv.HandleFunc("STATS", HandleStats)
	srv.HandleFunc("TRACE", HandleTrace)
	srv.HandleFunc("USER", HandleIgnore)
}

// HandleIgnore accepts a command without replying.
func HandleIgnore(_ *irc.ClientConn, _ ircmsg.Message) []irc.Reply {
	return nil
}

func HandleNick(cc *irc.ClientConn, msg ircmsg.Message) (res []irc.Reply) {
	if len(msg.Params) < 1 || msg.Params[0] == "" {
		return []irc.Reply{cc.NewReply(irc.ErrNoNicknameGiven, MsgNoNicknameGiven)}
	}
	nick := msg.Params[0]

	if !irc.IsValidNick(nick) {
		return []irc.Reply{cc.NewReply(irc.ErrErroneusNick, nick, MsgErroneusNick)}
	}

	if other := irc.FindNick(cc.Server.ClientMgr, nick); other != nil && other != cc {
		return []irc.Reply{cc.NewReply(irc.ErrNicknameInUse, nick, MsgNicknameInUse)}
	}

	firstNick := !cc.Registered()
	if !firstNick {
		res = append(res, cc.NewEcho("NICK", nick))
	}

	cc.Logger.Info("Nick set", "old", cc.Nick, "nick", nick)
	cc.Nick = nick

	if firstNick {
		res = append(res, cc.NewReply(irc.RplWelcome, fmt.Sprintf(MsgWelcome, cmp.Or(cc.Server.Config.Description, cc.Server.Config.ServerName), nick)))
	}

	return res
}

// HandleOper grants oper privilege for a configured oper account.
//
//	OPER <name> <password>
func HandleOper(cc *irc.ClientConn, msg ircmsg.Message) (res []irc.Reply) {
	if len(msg.Params) < 2 {
		return []irc.Reply{cc.NewReply(irc.ErrNeedMoreParams, "OPER", MsgNotEnoughParams)}
	}
	name, password := msg.Params[0], msg.Params[1]

	if !cc.Authenticate(name, []byte(password)) {
		cc.Logger.Info("Failed OPER attempt", "nick", cc.Nick, "account", name)

		res = append(res, cc.NewReply(irc.ErrPasswdMismatch, MsgPasswdMismatch))
		return append(res, notifyOpers(cc.Server, fmt.Sprintf(NoticeOperUpFailure, cc.Nick, name))...)
	}

	cc.Oper = name
	cc.Logger.Info("Oper up", "nick", cc.Nick, "account", name)

	res = append(res, cc.NewReply(irc.RplYoureOper, MsgYoureOper))
	return append(res, notifyOpers(cc.Server, fmt.Sprintf(NoticeOperUp, cc.Nick, name))...)
}

func HandlePing(cc *irc.ClientConn, msg ircmsg.Message) []irc.Reply {
	if len(msg.Params) < 1 {
		return []irc.Reply{cc.NewReply(irc.ErrNeedMoreParams, "PING", MsgNotEnoughParams)}
	}

	serverName := cc.Server.Config.ServerName

	return []irc.Reply{{
		ClientID: cc.ID,
		Msg:      ircmsg.MakeMessage(nil, serverName, "PONG", serverName, msg.Params[0]),
	}}
}

// HandleJoin checks each requested channel against the ban list. Channels that pass are echoed
// back to the client as joined.
//
//	JOIN <channel>{,<channel>}
func HandleJoin(cc *irc.ClientConn, msg ircmsg.Message) (res []irc.Reply) {
	if len(msg.Params) < 1 {
		return []irc.Reply{cc.NewReply(irc.ErrNeedMoreParams, "JOIN", MsgNotEnoughParams)}
	}

	for _, channel := range strings.Split(msg.Params[0], ",") {
		if !cc.Server.ValidChannel(channel) {
			res = append(res, cc.NewReply(irc.ErrNoSuchChannel, channel, MsgNoSuchChannel))
			continue
		}

		allowed, replies := CheckJoin(cc, channel)
		res = append(res, replies...)
		if !allowed {
			continue
		}

		res = append(res, cc.NewEcho("JOIN", channel))
	}

	return res
}

// HandleTrace lists every connected client. Registered clients are reported by nick as an oper
// or a user; clients that have not set a nick yet are reported by host. No end-of-trace numeric
// is sent.
func HandleTrace(cc *irc.ClientConn, _ ircmsg.Message) (res []irc.Reply) {
	for _, c := range cc.Server.ClientMgr.List() {
		switch {
		case !c.Registered():
			res = append(res, cc.NewReply(irc.RplTraceUnknown, fmt.Sprintf(MsgTraceUnknown, remoteHost(c.RemoteAddr))))
		case c.IsOperator():
			res = append(res, cc.NewReply(irc.RplTraceOperator, fmt.Sprintf(MsgTraceOper, c.Nick)))
		default:
			res = append(res, cc.NewReply(irc.RplTraceUser, fmt.Sprintf(MsgTraceUser, c.Nick)))
		}
	}

	return res
}

// remoteHost strips the port from a remote address.
func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}
