package autoprobe

import (
	"cmp"
	"fmt"
	"strings"
)

// Channel is the release track of a rustc toolchain.
//
// Channels are ordered from the most restrictive to the least restrictive:
// stable < beta < nightly < dev.
type Channel int

const (
	// ChannelStable is a stable release. Unstable feature gates are rejected.
	ChannelStable Channel = iota
	// ChannelBeta is a beta release. Unstable feature gates are rejected.
	ChannelBeta
	// ChannelNightly is a nightly build.
	ChannelNightly
	// ChannelDev is a locally built compiler or any unrecognized track.
	ChannelDev
)

var channelNames = map[Channel]string{
	ChannelStable:  "stable",
	ChannelBeta:    "beta",
	ChannelNightly: "nightly",
	ChannelDev:     "dev",
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// ChannelValues returns all channels in rank order.
func ChannelValues() []Channel {
	return []Channel{ChannelStable, ChannelBeta, ChannelNightly, ChannelDev}
}

// ChannelNames returns the names of all channels in rank order.
func ChannelNames() []string {
	values := ChannelValues()
	names := make([]string, 0, len(values))
	for _, c := range values {
		names = append(names, c.String())
	}
	return names
}

// ParseChannel maps a release token to a channel.
// An empty token or "stable" is stable, "beta" and "nightly" map to their
// channels, and everything else (including "dev") is dev.
func ParseChannel(token string) Channel {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "stable":
		return ChannelStable
	case "beta":
		return ChannelBeta
	case "nightly":
		return ChannelNightly
	default:
		return ChannelDev
	}
}

// channelFromRelease extracts the channel from a release string such as
// "1.70.0-beta.3". The token is the pre-release part up to the first dot.
func channelFromRelease(release string) Channel {
	release = strings.TrimSpace(release)
	// Build metadata never names a channel.
	if i := strings.IndexByte(release, '+'); i >= 0 {
		release = release[:i]
	}
	_, pre, found := strings.Cut(release, "-")
	if !found {
		return ChannelStable
	}
	token, _, _ := strings.Cut(pre, ".")
	return ParseChannel(token)
}

// Compare returns -1, 0 or +1 depending on the rank of c relative to o.
func (c Channel) Compare(o Channel) int {
	return cmp.Compare(c, o)
}

// AtLeast reports whether c is as permissive as required or more.
// A nightly toolchain is at least beta; a stable one is not.
func (c Channel) AtLeast(required Channel) bool {
	return c >= required
}
