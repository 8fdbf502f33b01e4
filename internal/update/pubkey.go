package update

// pinnedPublicKeyPEM is the release-signing public key compiled into this
// binary. It never changes at runtime: a release asset is only trusted if
// it verifies against this exact key, never one read from the release
// payload itself.
const pinnedPublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEA1R4Ie5dXhz28B3oKDMIx
757han48P5PgBoK6z8dfaH6FqrZ+6alnCwlv1r2xKajFtbZuK3MmcFK8e8LAh09Q
Tcg+jUSaC3O8kY43yu3YsOt9DEK/ORI+T/pmKL4pnKch80dICLWhEEl7ow0SKL4w
efOCZm/eTRgKSmGYdC6FQqhgRysUHag8dcYYq3A9yghNfkn34O6GbpyCsQ5xGyqc
8x9O603VND10shV6WvVFWb4QQkYKYB0JiaLgdh842sQbnnx3I6Xrs35ZSGT6aCG1
aH9+8mXTabnypg4lGUXCz9rIRPNd4nzX6lwLqNWtY80Y1MjTJJHigIsazDyM3eqX
ZwIDAQAB
-----END PUBLIC KEY-----
`
