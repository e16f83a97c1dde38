package cband

import (
	"fmt"
	"strconv"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/relaymesh/cband/irc"
)

// Reply text for the CBAN command, the join check and STATS C.
const (
	MsgCBanAddedTimed     = "Added %d second channel ban (%s)"
	MsgCBanAddedPermanent = "Added permanent channel ban (%s)"
	MsgCBanRemoved        = "Removed CBAN with %d seconds left before expiry (%s)"
	MsgInvalidChannel     = "Invalid channel name"
	MsgCBanned            = "Cannot join channel, CBANed (%s)"

	NoticeCBanAddedTimed     = "*** %s added %d second channel ban on %s (%s)"
	NoticeCBanAddedPermanent = "*** %s added permanent channel ban on %s (%s)"
	NoticeCBanExpired        = "*** %d second CBAN on %s (%s) set %d seconds ago expired"
	NoticeCBanJoinDenied     = "*** %s tried to join %s which is CBANed (%s)"
)

// STATS query symbols.
const (
	StatsSymbolCBan   = "C" // Active channel bans
	StatsSymbolUptime = "u" // Uptime and connection counters
)

const (
	MsgStatsUptime = "Server Up %d days %d:%02d:%02d"
	MsgStatsConn   = "Highest connection count: %d (%d clients) (%d connections received)"
)

// BanOutcome describes what a CBAN command did to the ban list.
type BanOutcome int

const (
	BanAdded BanOutcome = iota + 1
	BanRemoved

	// BanNotFound is the result of removing a channel that has no ban. No reply is sent to the issuer.
	BanNotFound

	// BanInvalidChannel is the result of adding a ban with a malformed channel name.
	BanInvalidChannel
)

func (o BanOutcome) String() string {
	switch o {
	case BanAdded:
		return "added"
	case BanRemoved:
		return "removed"
	case BanNotFound:
		return "not found"
	case BanInvalidChannel:
		return "invalid channel"
	}
	return "BanOutcome(" + strconv.Itoa(int(o)) + ")"
}

// notifyOpers returns a server notice with text for every connected oper.
func notifyOpers(srv *irc.Server, text string) (res []irc.Reply) {
	for _, c := range irc.Operators(srv.ClientMgr) {
		res = append(res, c.NewNotice(text))
	}
	return res
}

// expireBans sweeps the ban list and returns an oper notice for each ban that expired.
func expireBans(srv *irc.Server, now int64) (res []irc.Reply) {
	for _, b := range srv.BanList.Sweep(now) {
		srv.Logger.Debug("Ban expired", "channel", b.Channel, "duration", b.Duration)
		srv.Stats.Increment(irc.StatBansExpired)

		res = append(res, notifyOpers(srv, fmt.Sprintf(NoticeCBanExpired, b.Duration, b.Channel, b.Reason, b.Elapsed(now)))...)
	}
	return res
}

// HandleCBan adds or removes a channel ban.
//
//	CBAN <channel>                        removes the first ban on channel
//	CBAN <channel> <duration> [:<reason>] adds a ban; a duration of 0 is permanent
func HandleCBan(cc *irc.ClientConn, msg ircmsg.Message) (res []irc.Reply) {
	if !cc.IsOperator() {
		return []irc.Reply{cc.NewReply(irc.ErrNoPrivileges, "Permission Denied- You're not an IRC operator")}
	}

	if len(msg.Params) < 1 {
		return []irc.Reply{cc.NewReply(irc.ErrNeedMoreParams, "CBAN", "Not enough parameters")}
	}

	_, res = ApplyCBan(cc, msg.Params)

	return res
}

// ApplyCBan runs the CBAN command for params and reports the effect on the ban list along with
// the replies to send.
func ApplyCBan(cc *irc.ClientConn, params []string) (BanOutcome, []irc.Reply) {
	srv := cc.Server
	now := srv.Now()

	res := expireBans(srv, now)

	channel := params[0]

	if len(params) == 1 {
		b, ok := srv.BanList.RemoveFirstMatching(channel)
		if !ok {
			cc.Logger.Debug("CBAN removal matched nothing", "channel", channel)
			return BanNotFound, res
		}

		cc.Logger.Info("Removed channel ban", "channel", b.Channel, "nick", cc.Nick)

		return BanRemoved, append(res, cc.NewReply(irc.RplCBanRemoved, b.Channel, fmt.Sprintf(MsgCBanRemoved, b.Remaining(now), b.Reason)))
	}

	if !srv.ValidChannel(channel) {
		return BanInvalidChannel, append(res, cc.NewReply(irc.ErrNoSuchChannel, channel, MsgInvalidChannel))
	}

	reason := srv.Config.BanReason()
	if len(params) > 2 {
		reason = params[2]
	}

	b := irc.BanEntry{
		Channel:  channel,
		SetBy:    cc.Nick,
		SetOn:    now,
		Duration: srv.ParseDuration(params[1]),
		Reason:   reason,
	}
	srv.BanList.Add(b)
	srv.Stats.Increment(irc.StatBansAdded)

	cc.Logger.Info("Added channel ban", "channel", b.Channel, "nick", cc.Nick, "duration", b.Duration, "reason", b.Reason)

	if b.Permanent() {
		res = append(res, cc.NewReply(irc.RplCBanAdded, channel, fmt.Sprintf(MsgCBanAddedPermanent, reason)))
		res = append(res, notifyOpers(srv, fmt.Sprintf(NoticeCBanAddedPermanent, cc.Nick, channel, reason))...)
	} else {
		res = append(res, cc.NewReply(irc.RplCBanAdded, channel, fmt.Sprintf(MsgCBanAddedTimed, b.Duration, reason)))
		res = append(res, notifyOpers(srv, fmt.Sprintf(NoticeCBanAddedTimed, cc.Nick, b.Duration, channel, reason))...)
	}

	if srv.Bridge != nil {
		srv.Bridge.Announce(b)
	}

	return BanAdded, res
}

// CheckJoin decides whether cc may join channel. Opers are never refused. For anyone else the
// first ban matching channel refuses the join; the user is told the reason and opers are notified.
func CheckJoin(cc *irc.ClientConn, channel string) (allowed bool, res []irc.Reply) {
	srv := cc.Server

	res = expireBans(srv, srv.Now())

	if cc.IsOperator() {
		return true, res
	}

	b, ok := srv.BanList.FindFirstMatching(channel)
	if !ok {
		return true, res
	}

	cc.Logger.Info("Refused join to banned channel", "channel", channel, "nick", cc.Nick)
	srv.Stats.Increment(irc.StatJoinsRefused)

	res = append(res, cc.NewReply(irc.ErrCBanned, channel, fmt.Sprintf(MsgCBanned, b.Reason)))
	res = append(res, notifyOpers(srv, fmt.Sprintf(NoticeCBanJoinDenied, cc.Nick, channel, b.Reason))...)

	return false, res
}

// HandleStats answers STATS queries. The C symbol lists active channel bans as
//
//	210 <nick> <channel> <setBy> <setOn> <duration> <remaining> :<reason>
//
// and the u symbol reports uptime and connection counts.
func HandleStats(cc *irc.ClientConn, msg ircmsg.Message) (res []irc.Reply) {
	if len(msg.Params) < 1 {
		return []irc.Reply{cc.NewReply(irc.ErrNeedMoreParams, "STATS", "Not enough parameters")}
	}
	symbol := msg.Params[0]

	now := cc.Server.Now()
	res = expireBans(cc.Server, now)

	switch symbol {
	case StatsSymbolCBan:
		for b := range cc.Server.BanList.All() {
			res = append(res, cc.NewReply(irc.RplStatsCLine,
				b.Channel,
				b.SetBy,
				strconv.FormatInt(b.SetOn, 10),
				strconv.FormatInt(b.Duration, 10),
				strconv.FormatInt(b.Remaining(now), 10),
				b.Reason,
			))
		}
	case StatsSymbolUptime:
		stats := cc.Server.Stats
		up := now - stats.Since()

		res = append(res,
			cc.NewReply(irc.RplStatsUptime, fmt.Sprintf(MsgStatsUptime, up/86400, up%86400/3600, up%3600/60, up%60)),
			cc.NewReply(irc.RplStatsConn, fmt.Sprintf(MsgStatsConn,
				stats.Get(irc.StatConnectionPeak),
				stats.Get(irc.StatCurrentlyConnected),
				stats.Get(irc.StatConnectionCounter),
			)),
		)
	}

	return append(res, cc.NewReply(irc.RplEndOfStats, symbol, "End of /STATS report"))
}
