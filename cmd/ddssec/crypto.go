package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/ruteri/ddssec-engine/client"
	"github.com/ruteri/ddssec-engine/cmd/flags"
	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/engine"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/ruteri/ddssec-engine/keymaterial"
	"github.com/ruteri/ddssec-engine/storage"
	"github.com/ruteri/ddssec-engine/ta"
	"github.com/urfave/cli/v2"
)

var (
	flagKey = &cli.StringFlag{
		Name:     "key",
		Required: true,
		Usage:    "hex-encoded AES-128 or AES-256 key",
	}
	flagIV = &cli.StringFlag{
		Name:     "iv",
		Required: true,
		Usage:    "hex-encoded 12-byte IV",
	}
	flagData = &cli.StringFlag{
		Name:     "data",
		Required: true,
		Usage:    "hex-encoded input",
	}
	flagTag = &cli.StringFlag{
		Name:     "tag",
		Required: true,
		Usage:    "hex-encoded authentication tag",
	}
	flagTagSize = &cli.IntFlag{
		Name:  "tag-size",
		Value: cryptoutils.MaxTagSize,
		Usage: "tag length in bytes",
	}
)

// newLocalClient opens a session on an engine with default capacities and no
// object stores.
func newLocalClient(logger *slog.Logger) (*client.Client, func(), error) {
	builtin, err := storage.NewBuiltinStore(nil)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(engine.DefaultConfig(), cryptoutils.NewX509PKI(), builtin, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	return client.New(ta.NewSession(eng, logger, nil)), eng.Close, nil
}

func decodeHexFlags(cCtx *cli.Context, names ...string) ([][]byte, error) {
	out := make([][]byte, len(names))
	for i, name := range names {
		b, err := hex.DecodeString(cCtx.String(name))
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", name, err)
		}
		out[i] = b
	}
	return out, nil
}

var encryptCommand = &cli.Command{
	Name:  "encrypt",
	Usage: "AES-GCM encrypt with a raw key",
	Flags: []cli.Flag{flagKey, flagIV, flagData, flagTagSize},
	Action: func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)
		in, err := decodeHexFlags(cCtx, flagKey.Name, flagIV.Name, flagData.Name)
		if err != nil {
			return err
		}
		c, closeEngine, err := newLocalClient(logger)
		if err != nil {
			return err
		}
		defer closeEngine()

		ciphertext, tag, err := c.AESEncrypt(context.Background(), in[0], in[1], cCtx.Int(flagTagSize.Name), in[2])
		if err != nil {
			return err
		}
		fmt.Printf("ciphertext: %x\n", ciphertext)
		fmt.Printf("tag: %x\n", tag)
		return nil
	},
}

var decryptCommand = &cli.Command{
	Name:  "decrypt",
	Usage: "AES-GCM decrypt with a raw key",
	Flags: []cli.Flag{flagKey, flagIV, flagTag, flagData},
	Action: func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)
		in, err := decodeHexFlags(cCtx, flagKey.Name, flagIV.Name, flagTag.Name, flagData.Name)
		if err != nil {
			return err
		}
		c, closeEngine, err := newLocalClient(logger)
		if err != nil {
			return err
		}
		defer closeEngine()

		plaintext, err := c.AESDecrypt(context.Background(), in[0], in[1], in[2], in[3])
		if err != nil {
			return err
		}
		fmt.Printf("plaintext: %x\n", plaintext)
		return nil
	},
}

var (
	flagGCM = &cli.BoolFlag{
		Name:  "gcm",
		Value: true,
		Usage: "AES-GCM transformation; GMAC when false",
	}
	flagAES256 = &cli.BoolFlag{
		Name:  "aes256",
		Value: true,
		Usage: "256-bit keys; 128-bit when false",
	}
	flagOriginAuth = &cli.BoolFlag{
		Name:  "origin-auth",
		Usage: "register for origin authentication",
	}
	flagReceiverSpecific = &cli.BoolFlag{
		Name:  "receiver-specific",
		Usage: "register with a fresh receiver-specific key",
	}
)

func printKeyMaterial(km *keymaterial.KeyMaterial) {
	w := km.Kind.KeyWidth()
	fmt.Printf("kind: %s\n", km.Kind)
	fmt.Printf("master salt: %x\n", km.MasterSalt[:w])
	fmt.Printf("sender key id: %x\n", km.SenderKeyID)
	fmt.Printf("master sender key: %x\n", km.MasterSenderKey[:w])
	if km.HasReceiverSpecific() {
		fmt.Printf("receiver specific key id: %x\n", km.ReceiverSpecificKeyID)
		fmt.Printf("master receiver specific key: %x\n", km.MasterReceiverSpecificKey[:w])
	}
}

var keymaterialCommand = &cli.Command{
	Name:  "keymaterial",
	Usage: "Create and inspect serialized key material",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Create random key material and print its serialized form",
			Flags: []cli.Flag{flagGCM, flagAES256, flagOriginAuth, flagReceiverSpecific},
			Action: func(cCtx *cli.Context) error {
				logger := flags.SetupLogger(cCtx)
				c, closeEngine, err := newLocalClient(logger)
				if err != nil {
					return err
				}
				defer closeEngine()

				ctx := context.Background()
				kh, err := c.CreateKeyMaterial(ctx, cCtx.Bool(flagGCM.Name), cCtx.Bool(flagAES256.Name))
				if err != nil {
					return err
				}
				if cCtx.Bool(flagOriginAuth.Name) || cCtx.Bool(flagReceiverSpecific.Name) {
					kh, err = c.RegisterKeyMaterial(ctx, kh, cCtx.Bool(flagOriginAuth.Name), cCtx.Bool(flagReceiverSpecific.Name))
					if err != nil {
						return err
					}
				}
				data, err := c.SerializeKeyMaterial(ctx, kh)
				if err != nil {
					return err
				}
				fmt.Printf("%x\n", data)
				return nil
			},
		},
		{
			Name:  "inspect",
			Usage: "Decode serialized key material",
			Flags: []cli.Flag{flagData},
			Action: func(cCtx *cli.Context) error {
				logger := flags.SetupLogger(cCtx)
				in, err := decodeHexFlags(cCtx, flagData.Name)
				if err != nil {
					return err
				}
				c, closeEngine, err := newLocalClient(logger)
				if err != nil {
					return err
				}
				defer closeEngine()

				ctx := context.Background()
				kh, err := c.DeserializeKeyMaterial(ctx, in[0])
				if err != nil {
					return err
				}
				km, err := c.KeyMaterial(ctx, kh)
				if err != nil {
					return err
				}
				defer km.Wipe()
				printKeyMaterial(&km)
				return nil
			},
		},
	},
}

var (
	flagChallengeSize = &cli.IntFlag{
		Name:  "challenge-size",
		Value: 32,
		Usage: "challenge length in bytes",
	}
	flagCAObject = &cli.StringFlag{
		Name:  "ca-object",
		Usage: "identity CA object name; enables mutual authentication",
	}
	flagInitiator = &cli.StringFlag{
		Name:  "initiator",
		Value: "initiator",
		Usage: "initiator objects are <name>_cert.pem and <name>_key.pem",
	}
	flagResponder = &cli.StringFlag{
		Name:  "responder",
		Value: "responder",
		Usage: "responder objects are <name>_cert.pem and <name>_key.pem",
	}
	flagKeyPassword = &cli.StringFlag{
		Name:    "key-password",
		EnvVars: []string{"DDSSEC_KEY_PASSWORD"},
		Usage:   "password of encrypted private key objects",
	}
)

func loadParticipant(ctx context.Context, c *client.Client, ca, name string, password []byte) (interfaces.HandleID, error) {
	ih, err := c.CreateIdentity(ctx)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	if err := c.LoadCA(ctx, ih, ca); err != nil {
		return interfaces.InvalidHandle, err
	}
	if err := c.LoadCertificate(ctx, ih, name+"_cert.pem"); err != nil {
		return interfaces.InvalidHandle, err
	}
	if err := c.LoadPrivateKey(ctx, ih, name+"_key.pem", password); err != nil {
		return interfaces.InvalidHandle, err
	}
	return ih, nil
}

var handshakeCommand = &cli.Command{
	Name:  "handshake",
	Usage: "Run the handshake between two in-process engines and compare the derived key material",
	Flags: append([]cli.Flag{flagChallengeSize, flagCAObject, flagInitiator, flagResponder, flagKeyPassword}, flags.EngineFlags...),
	Action: func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)
		ctx := context.Background()

		var clients [2]*client.Client
		for i := range clients {
			eng, err := flags.NewEngine(cCtx, logger.With(slog.Int("engine", i)))
			if err != nil {
				logger.Error("Failed to create engine", "err", err)
				return err
			}
			defer eng.Close()
			clients[i] = client.New(ta.NewSession(eng, logger, nil))
		}
		initiator, responder := clients[0], clients[1]

		if ca := cCtx.String(flagCAObject.Name); ca != "" {
			password := []byte(cCtx.String(flagKeyPassword.Name))
			ii, err := loadParticipant(ctx, initiator, ca, cCtx.String(flagInitiator.Name), password)
			if err != nil {
				return fmt.Errorf("initiator identity: %w", err)
			}
			ri, err := loadParticipant(ctx, responder, ca, cCtx.String(flagResponder.Name), password)
			if err != nil {
				return fmt.Errorf("responder identity: %w", err)
			}
			nonce, err := cryptoutils.RandomBytes(32)
			if err != nil {
				return err
			}
			if err := client.Authenticate(ctx, initiator, ii, responder, ri, nonce); err != nil {
				return fmt.Errorf("initiator authentication: %w", err)
			}
			if err := client.Authenticate(ctx, responder, ri, initiator, ii, nonce); err != nil {
				return fmt.Errorf("responder authentication: %w", err)
			}
			logger.Info("Participants authenticated")
		}

		ki, kr, err := client.Handshake(ctx, initiator, responder, cCtx.Int(flagChallengeSize.Name))
		if err != nil {
			logger.Error("Handshake failed", "err", err)
			return err
		}
		si, err := initiator.SerializeKeyMaterial(ctx, ki)
		if err != nil {
			return err
		}
		defer cryptoutils.Wipe(si)
		sr, err := responder.SerializeKeyMaterial(ctx, kr)
		if err != nil {
			return err
		}
		defer cryptoutils.Wipe(sr)

		fmt.Printf("initiator key material: %x\n", cryptoutils.SHA256(si)[:8])
		fmt.Printf("responder key material: %x\n", cryptoutils.SHA256(sr)[:8])
		if !bytes.Equal(si, sr) {
			return fmt.Errorf("derived key material differs")
		}
		fmt.Println("key material matches")
		return nil
	},
}
