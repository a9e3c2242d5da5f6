package irc

// Numeric replies the harness dispatches on during registration and joins.
const (
	RplWelcome       = "001"
	RplISupport      = "005"
	RplEndOfMotd     = "376"
	ErrNoMotd        = "422"
	RplEndOfNames    = "366"
	RplLoggedIn      = "900"
	RplSaslSuccess   = "903"
	ErrNickNameInUse = "433"
)

// JoinFailNumerics is the closed set of numerics denoting a rejected JOIN
// (RFC 1459/2812 plus a few implementation-specific variants).
var JoinFailNumerics = map[string]bool{
	"403": true, // ERR_NOSUCHCHANNEL
	"405": true, // ERR_TOOMANYCHANNELS
	"471": true, // ERR_CHANNELISFULL
	"472": true, // ERR_UNKNOWNMODE
	"473": true, // ERR_INVITEONLYCHAN
	"474": true, // ERR_BANNEDFROMCHAN
	"475": true, // ERR_BADCHANNELKEY
	"476": true, // ERR_BADCHANMASK
	"477": true, // ERR_NOCHANMODES
	"485": true, // ERR_UNIQOPPRIVSNEEDED
	"494": true, // ERR_OWNMODE
	"500": true, // ERR_NOSUCHCHANNEL on some servers
}
