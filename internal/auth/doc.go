// Package auth verifies and issues the RS256 bearer tokens edges present to
// the cloud.
//
// Tokens carry a "user" claim naming the edge identity plus standard "iat"
// and "exp" claims. The cloud holds only the public key; edges hold the
// private key. Expiry is always required and only RS256 is accepted, so an
// unsigned or HMAC token signed with the public key is rejected.
package auth
