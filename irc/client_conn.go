package irc

import (
	"cmp"
	"io"
	"sync"

	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/crypto/bcrypt"
)

// ClientConn represents a client connected to a Server
type ClientConn struct {
	ID         ClientID
	Connection io.ReadWriteCloser
	RemoteAddr string
	Nick       string
	Oper       string // Name of the oper account in use, empty for ordinary users
	Server     *Server
	Logger     Logger

	writeMu sync.Mutex
}

// Registered reports whether the client has set a nickname.
func (cc *ClientConn) Registered() bool {
	return cc.Nick != ""
}

// IsOperator reports whether the client holds oper privilege.
func (cc *ClientConn) IsOperator() bool {
	return cc.Oper != ""
}

// Authenticate checks name and password against the configured oper accounts.
func (cc *ClientConn) Authenticate(name string, password []byte) bool {
	for _, oper := range cc.Server.Config.Opers {
		if oper.Name == name {
			return bcrypt.CompareHashAndPassword([]byte(oper.PasswordHash), password) == nil
		}
	}

	return false
}

// target returns the nick used as the first parameter of numerics sent to the client.
func (cc *ClientConn) target() string {
	return cmp.Or(cc.Nick, "*")
}

// NewReply returns a numeric reply addressed to the client.
func (cc *ClientConn) NewReply(numeric string, params ...string) Reply {
	return Reply{
		ClientID: cc.ID,
		Msg:      ircmsg.MakeMessage(nil, cc.Server.Config.ServerName, numeric, append([]string{cc.target()}, params...)...),
	}
}

// NewNotice returns a server notice addressed to the client.
func (cc *ClientConn) NewNotice(text string) Reply {
	return Reply{
		ClientID: cc.ID,
		Msg:      ircmsg.MakeMessage(nil, cc.Server.Config.ServerName, "NOTICE", cc.target(), text),
	}
}

// NewEcho returns a message sourced from the client itself, such as a JOIN confirmation.
func (cc *ClientConn) NewEcho(command string, params ...string) Reply {
	return Reply{
		ClientID: cc.ID,
		Msg:      ircmsg.MakeMessage(nil, cc.Nick, command, params...),
	}
}

// Send writes msg to the client connection as a single CRLF terminated line.
func (cc *ClientConn) Send(msg ircmsg.Message) error {
	line, err := msg.Line()
	if err != nil {
		return err
	}

	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()

	_, err = io.WriteString(cc.Connection, line)
	return err
}

// Disconnect removes the client from the server and closes the connection.
func (cc *ClientConn) Disconnect() {
	cc.Server.ClientMgr.Delete(cc.ID)
	cc.Server.Stats.Decrement(StatCurrentlyConnected)

	if err := cc.Connection.Close(); err != nil {
		cc.Logger.Error("error closing client connection", "RemoteAddr", cc.RemoteAddr, "err", err)
	}
}
