package cband

import (
	"testing"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/relaymesh/cband/irc"
	"github.com/stretchr/testify/assert"
)

// hunter2Hash is a bcrypt hash of "hunter2" at the minimum cost.
const hunter2Hash = "$2b$04$DKwv9nIslSTrSpp.qirLzONfJo/F0rKCrg92hzB/3h82BOTMiK8z2"

func TestHandleNick(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(srv *irc.Server) *irc.ClientConn
		params   []string
		want     func(cc *irc.ClientConn) []sent
		wantNick string
	}{
		{
			name: "first nick is welcomed",
			setup: func(srv *irc.Server) *irc.ClientConn {
				return addClient(srv, "", false)
			},
			params: []string{"dave"},
			want: func(cc *irc.ClientConn) []sent {
				return []sent{
					{To: cc.ID, Command: irc.RplWelcome, Params: []string{"dave", "Welcome to irc.test, dave"}},
				}
			},
			wantNick: "dave",
		},
		{
			name: "changing nick echoes NICK",
			setup: func(srv *irc.Server) *irc.ClientConn {
				return addClient(srv, "dave", false)
			},
			params: []string{"david"},
			want: func(cc *irc.ClientConn) []sent {
				return []sent{
					{To: cc.ID, Command: "NICK", Params: []string{"david"}},
				}
			},
			wantNick: "david",
		},
		{
			name: "nick in use",
			setup: func(srv *irc.Server) *irc.ClientConn {
				addClient(srv, "Alice", false)
				return addClient(srv, "dave", false)
			},
			params: []string{"alice"},
			want: func(cc *irc.ClientConn) []sent {
				return []sent{
					{To: cc.ID, Command: irc.ErrNicknameInUse, Params: []string{"dave", "alice", MsgNicknameInUse}},
				}
			},
			wantNick: "dave",
		},
		{
			name: "changing case of own nick",
			setup: func(srv *irc.Server) *irc.ClientConn {
				return addClient(srv, "dave", false)
			},
			params: []string{"Dave"},
			want: func(cc *irc.ClientConn) []sent {
				return []sent{
					{To: cc.ID, Command: "NICK", Params: []string{"Dave"}},
				}
			},
			wantNick: "Dave",
		},
		{
			name: "no nick given",
			setup: func(srv *irc.Server) *irc.ClientConn {
				return addClient(srv, "", false)
			},
			params: nil,
			want: func(cc *irc.ClientConn) []sent {
				return []sent{
					{To: cc.ID, Command: irc.ErrNoNicknameGiven, Params: []string{"*", MsgNoNicknameGiven}},
				}
			},
			wantNick: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &testClock{now: 1000})
			cc := tt.setup(srv)

			res := HandleNick(cc, ircmsg.MakeMessage(nil, "", "NICK", tt.params...))

			assert.Equal(t, tt.want(cc), summarize(res))
			assert.Equal(t, tt.wantNick, cc.Nick)
		})
	}
}

func TestHandleNick_WelcomeUsesDescription(t *testing.T) {
	srv := newTestServer(t, &testClock{}, irc.WithConfig(irc.Config{ServerName: "irc.test", Description: "TestNet"}))
	cc := addClient(srv, "", false)

	res := HandleNick(cc, ircmsg.MakeMessage(nil, "", "NICK", "dave"))
	assert.Equal(t, "Welcome to TestNet, dave", res[0].Msg.Params[1])
	assert.Equal(t, "irc.test", res[0].Msg.Source)
}

func TestHandleNick_Erroneous(t *testing.T) {
	tests := []struct {
		name string
		nick string
	}{
		{name: "space", nick: "da ve"},
		{name: "comma", nick: "dave,carol"},
		{name: "asterisk", nick: "da*ve"},
		{name: "question mark", nick: "dave?"},
		{name: "exclamation mark", nick: "dave!user"},
		{name: "at sign", nick: "dave@host"},
		{name: "leading hash", nick: "#dave"},
		{name: "leading colon", nick: ":dave"},
		{name: "leading digit", nick: "4dave"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &testClock{now: 1000})

			t.Run("unregistered", func(t *testing.T) {
				cc := addClient(srv, "", false)

				res := HandleNick(cc, ircmsg.MakeMessage(nil, "", "NICK", tt.nick))

				assert.Equal(t, []sent{
					{To: cc.ID, Command: irc.ErrErroneusNick, Params: []string{"*", tt.nick, MsgErroneusNick}},
				}, summarize(res))
				assert.Empty(t, cc.Nick)
			})

			t.Run("registered", func(t *testing.T) {
				cc := addClient(srv, "dave", false)

				res := HandleNick(cc, ircmsg.MakeMessage(nil, "", "NICK", tt.nick))

				assert.Equal(t, []sent{
					{To: cc.ID, Command: irc.ErrErroneusNick, Params: []string{"dave", tt.nick, MsgErroneusNick}},
				}, summarize(res))
				assert.Equal(t, "dave", cc.Nick)
			})
		})
	}
}

func TestHandleOper(t *testing.T) {
	config := irc.Config{
		ServerName: "irc.test",
		Opers:      []irc.Oper{{Name: "admin", PasswordHash: hunter2Hash}},
	}

	t.Run("correct password", func(t *testing.T) {
		srv := newTestServer(t, &testClock{}, irc.WithConfig(config))
		alice := addClient(srv, "alice", true)
		dave := addClient(srv, "dave", false)

		res := HandleOper(dave, ircmsg.MakeMessage(nil, "", "OPER", "admin", "hunter2"))

		assert.Equal(t, []sent{
			{To: dave.ID, Command: irc.RplYoureOper, Params: []string{"dave", MsgYoureOper}},
			{To: alice.ID, Command: "NOTICE", Params: []string{"alice", "*** dave is now an IRC operator (admin)"}},
			{To: dave.ID, Command: "NOTICE", Params: []string{"dave", "*** dave is now an IRC operator (admin)"}},
		}, summarize(res))
		assert.True(t, dave.IsOperator())
	})

	t.Run("wrong password", func(t *testing.T) {
		srv := newTestServer(t, &testClock{}, irc.WithConfig(config))
		alice := addClient(srv, "alice", true)
		dave := addClient(srv, "dave", false)

		res := HandleOper(dave, ircmsg.MakeMessage(nil, "", "OPER", "admin", "letmein"))

		assert.Equal(t, []sent{
			{To: dave.ID, Command: irc.ErrPasswdMismatch, Params: []string{"dave", MsgPasswdMismatch}},
			{To: alice.ID, Command: "NOTICE", Params: []string{"alice", "*** Failed OPER attempt by dave using account admin"}},
		}, summarize(res))
		assert.False(t, dave.IsOperator())
	})

	t.Run("unknown account", func(t *testing.T) {
		srv := newTestServer(t, &testClock{}, irc.WithConfig(config))
		dave := addClient(srv, "dave", false)

		res := HandleOper(dave, ircmsg.MakeMessage(nil, "", "OPER", "root", "hunter2"))

		assert.Equal(t, []sent{
			{To: dave.ID, Command: irc.ErrPasswdMismatch, Params: []string{"dave", MsgPasswdMismatch}},
		}, summarize(res))
		assert.False(t, dave.IsOperator())
	})

	t.Run("missing password", func(t *testing.T) {
		srv := newTestServer(t, &testClock{}, irc.WithConfig(config))
		dave := addClient(srv, "dave", false)

		res := HandleOper(dave, ircmsg.MakeMessage(nil, "", "OPER", "admin"))

		assert.Equal(t, []sent{
			{To: dave.ID, Command: irc.ErrNeedMoreParams, Params: []string{"dave", "OPER", MsgNotEnoughParams}},
		}, summarize(res))
	})
}

func TestHandlePing(t *testing.T) {
	srv := newTestServer(t, &testClock{})
	cc := addClient(srv, "dave", false)

	res := HandlePing(cc, ircmsg.MakeMessage(nil, "", "PING", "12345"))
	assert.Equal(t, []sent{
		{To: cc.ID, Command: "PONG", Params: []string{"irc.test", "12345"}},
	}, summarize(res))
	assert.Equal(t, "irc.test", res[0].Msg.Source)
}

func TestHandleJoin(t *testing.T) {
	f := newBanFixture(t)
	ApplyCBan(f.alice, []string{"#foo", "1h", "spam"})

	t.Run("checks each channel in the list", func(t *testing.T) {
		res := HandleJoin(f.carol, ircmsg.MakeMessage(nil, "", "JOIN", "#foo,#bar,bar"))

		want := []sent{
			{To: f.carol.ID, Command: irc.ErrCBanned, Params: []string{"carol", "#foo", "Cannot join channel, CBANed (spam)"}},
		}
		want = append(want, f.operNotices("*** carol tried to join #foo which is CBANed (spam)")...)
		want = append(want,
			sent{To: f.carol.ID, Command: "JOIN", Params: []string{"#bar"}},
			sent{To: f.carol.ID, Command: irc.ErrNoSuchChannel, Params: []string{"carol", "bar", MsgNoSuchChannel}},
		)
		assert.Equal(t, want, summarize(res))
		assert.Equal(t, "carol", res[len(res)-2].Msg.Source)
	})

	t.Run("opers join banned channels", func(t *testing.T) {
		res := HandleJoin(f.bob, ircmsg.MakeMessage(nil, "", "JOIN", "#foo"))
		assert.Equal(t, []sent{
			{To: f.bob.ID, Command: "JOIN", Params: []string{"#foo"}},
		}, summarize(res))
	})

	t.Run("needs a channel", func(t *testing.T) {
		res := HandleJoin(f.carol, ircmsg.MakeMessage(nil, "", "JOIN"))
		assert.Equal(t, []sent{
			{To: f.carol.ID, Command: irc.ErrNeedMoreParams, Params: []string{"carol", "JOIN", MsgNotEnoughParams}},
		}, summarize(res))
	})
}

func TestHandleTrace(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *banFixture)
		want  func(f *banFixture) []sent
	}{
		{
			name: "opers and users",
			want: func(f *banFixture) []sent {
				return []sent{
					{To: f.carol.ID, Command: irc.RplTraceOperator, Params: []string{"carol", "Oper 0 alice"}},
					{To: f.carol.ID, Command: irc.RplTraceOperator, Params: []string{"carol", "Oper 0 bob"}},
					{To: f.carol.ID, Command: irc.RplTraceUser, Params: []string{"carol", "User 0 carol"}},
				}
			},
		},
		{
			name: "unregistered clients are shown by host",
			setup: func(f *banFixture) {
				f.srv.ClientMgr.Add(&irc.ClientConn{RemoteAddr: "192.0.2.7:50123", Server: f.srv, Logger: NewTestLogger()})
				f.srv.ClientMgr.Add(&irc.ClientConn{RemoteAddr: "[2001:db8::1]:6667", Server: f.srv, Logger: NewTestLogger()})
				f.srv.ClientMgr.Add(&irc.ClientConn{RemoteAddr: "pipe", Server: f.srv, Logger: NewTestLogger()})
			},
			want: func(f *banFixture) []sent {
				return []sent{
					{To: f.carol.ID, Command: irc.RplTraceOperator, Params: []string{"carol", "Oper 0 alice"}},
					{To: f.carol.ID, Command: irc.RplTraceOperator, Params: []string{"carol", "Oper 0 bob"}},
					{To: f.carol.ID, Command: irc.RplTraceUser, Params: []string{"carol", "User 0 carol"}},
					{To: f.carol.ID, Command: irc.RplTraceUnknown, Params: []string{"carol", "???? 0 [192.0.2.7]"}},
					{To: f.carol.ID, Command: irc.RplTraceUnknown, Params: []string{"carol", "???? 0 [2001:db8::1]"}},
					{To: f.carol.ID, Command: irc.RplTraceUnknown, Params: []string{"carol", "???? 0 [pipe]"}},
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBanFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			res := HandleTrace(f.carol, ircmsg.MakeMessage(nil, "", "TRACE"))
			assert.Equal(t, tt.want(f), summarize(res))
		})
	}
}
