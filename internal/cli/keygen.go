package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thimbleforth/ditto-fde-takehome/internal/auth"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	PrivatePath string
	PublicPath  string
	Bits        int
}

// KeygenResult describes the written key pair.
type KeygenResult struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	Bits       int    `json:"bits"`
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the RSA key pair for edge tokens",
		Long: `Generate an RSA key pair. Edges sign tokens with the private key; the
cloud verifies them with the public key.

The private key is written with mode 0600.

Examples:
  reportsync keygen
  reportsync keygen --private ./edge/private.pem --public ./cloud/keys/public.pem`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PrivatePath, "private", "private.pem", "private key output path")
	cmd.Flags().StringVar(&opts.PublicPath, "public", "public.pem", "public key output path")
	cmd.Flags().IntVar(&opts.Bits, "bits", auth.DefaultKeyBits, "RSA modulus size")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	if err := auth.WriteKeyPair(opts.PrivatePath, opts.PublicPath, opts.Bits); err != nil {
		return WrapExitError(ExitCommandError, "failed to generate key pair", err)
	}

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if f.JSON() {
		return f.Success(KeygenResult{PrivateKey: opts.PrivatePath, PublicKey: opts.PublicPath, Bits: opts.Bits})
	}
	fmt.Fprintf(f.Writer, "%s Wrote %d-bit key pair\n", markOK, opts.Bits)
	fmt.Fprintf(f.Writer, "  private: %s\n", opts.PrivatePath)
	fmt.Fprintf(f.Writer, "  public:  %s\n", opts.PublicPath)
	return nil
}
