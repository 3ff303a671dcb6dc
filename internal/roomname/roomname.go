// Package roomname generates memorable room identifiers such as
// "brisk-heron-lantern".
package roomname

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var adjectives = []string{
	"amber", "brisk", "calm", "dapper", "eager", "fierce", "gentle", "hollow", "idle", "jagged",
	"keen", "lucid", "mellow", "nimble", "odd", "plush", "quiet", "rustic", "sunny", "tidy",
	"urban", "vivid", "witty", "young", "zesty", "breezy", "cosmic", "dusky", "frosty", "misty",
}

var creatures = []string{
	"badger", "heron", "lynx", "marmot", "newt", "osprey", "puffin", "quail", "raven", "stoat",
	"tapir", "urchin", "vole", "walrus", "yak", "zebu", "bison", "condor", "dingo", "egret",
	"gecko", "ibis", "jackal", "kestrel", "lemur", "moose", "ocelot", "pika", "tern", "wren",
}

var things = []string{
	"anchor", "beacon", "candle", "drum", "easel", "fiddle", "gazebo", "harbor", "igloo", "jigsaw",
	"kettle", "lantern", "mitten", "nutmeg", "oar", "parcel", "quill", "ribbon", "saddle", "teapot",
	"umbrella", "violin", "wagon", "yarn", "zipper", "bramble", "cobble", "dune", "fjord", "grove",
}

// New returns a random three-word room identifier.
func New() string {
	return strings.Join([]string{pick(adjectives), pick(creatures), pick(things)}, "-")
}

// ErrTaken is returned by a claim attempt when the room already has members.
var ErrTaken = errors.New("room name already in use")

const maxClaims = 8

// Claim draws fresh identifiers and hands each to try until one succeeds.
// A try that fails with ErrTaken is retried with a new identifier; any other
// error ends the claim.
func Claim(try func(id string) error) (string, error) {
	var err error
	for range maxClaims {
		id := New()
		if err = try(id); !errors.Is(err, ErrTaken) {
			return id, err
		}
	}
	return "", fmt.Errorf("no free room name after %d attempts: %w", maxClaims, err)
}

func pick(words []string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return words[0]
	}
	return words[n.Int64()]
}
