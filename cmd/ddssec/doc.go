// Command ddssec runs and exercises the DDS-Security crypto engine.
//
//	ddssec serve --object-store file:///var/lib/ddssec --builtin-dir ./certs
//	ddssec handshake --builtin-dir ./certs --ca-object identity_ca.pem --initiator alice --responder bob
//	ddssec encrypt --key 00..1f --iv 000102030405060708090a0b --data 68656c6c6f
//	ddssec keymaterial create --origin-auth --receiver-specific
//	ddssec object put --store "sqlite:///tmp/objects.db?sealed=true" identity_ca.pem ./ca.pem
package main
