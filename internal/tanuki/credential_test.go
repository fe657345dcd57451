package tanuki

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialBlankRejectedWithoutExec(t *testing.T) {
	// An empty search path would make any external invocation fail loudly;
	// the blank check must short-circuit before that.
	t.Setenv("PATH", t.TempDir())

	for _, secret := range []string{"", "   ", "\t\n"} {
		err := newCredential(secret).Validate(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, errCredentialInvalid)
		assert.Contains(t, err.Error(), "password cannot be empty")
	}
}

func TestCredentialValidate(t *testing.T) {
	bin := fakeBin(t)
	writeScript(t, bin, "sudo", fakeSudo)

	t.Run("correct password", func(t *testing.T) {
		cred := newCredential("hunter2")
		assert.NoError(t, cred.Validate(context.Background()))
	})

	t.Run("incorrect password", func(t *testing.T) {
		err := newCredential("wrong").Validate(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, errCredentialInvalid)
		assert.Contains(t, err.Error(), "incorrect password")
	})

	t.Run("succeeds on third attempt", func(t *testing.T) {
		ctx := context.Background()
		for i := 0; i < 2; i++ {
			cred := newCredential("wrong")
			err := cred.Validate(ctx)
			require.ErrorIs(t, err, errCredentialInvalid)
			cred.Wipe()
		}
		assert.NoError(t, newCredential("hunter2").Validate(ctx))
	})
}

func TestCredentialUnauthorizedAccount(t *testing.T) {
	bin := fakeBin(t)
	writeScript(t, bin, "sudo", `read -r pw
echo "alice is not in the sudoers file. This incident will be reported." >&2
exit 1
`)

	err := newCredential("hunter2").Validate(context.Background())
	assert.ErrorIs(t, err, errCredentialUnauthorized)
}

func TestCredentialIdentityProbeMustReportRoot(t *testing.T) {
	bin := fakeBin(t)
	writeScript(t, bin, "sudo", `read -r pw
if [ "$1" = "-S" ]; then shift; fi
if [ "$1" = "-v" ]; then exit 0; fi
if [ "$1" = "whoami" ]; then echo nobody; exit 0; fi
exit 1
`)

	err := newCredential("hunter2").Validate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errCredentialInvalid)
	assert.Contains(t, err.Error(), "do not run as root")
}

func TestClassifyProbeFailure(t *testing.T) {
	assert.ErrorIs(t, classifyProbeFailure("sudo: 1 incorrect password attempt"), errCredentialInvalid)
	assert.ErrorIs(t, classifyProbeFailure("Sorry, try again."), errCredentialInvalid)
	assert.ErrorIs(t, classifyProbeFailure("bob is not in the sudoers file"), errCredentialUnauthorized)
	assert.ErrorIs(t, classifyProbeFailure(""), errCredentialInvalid)
	assert.ErrorIs(t, classifyProbeFailure("some other failure"), errCredentialInvalid)
}

func TestCredentialWipe(t *testing.T) {
	cred := newCredential("hunter2")
	cred.Wipe()
	assert.True(t, cred.blank())

	// A wiped credential must fail validation without reaching any probe.
	t.Setenv("PATH", t.TempDir())
	assert.ErrorIs(t, cred.Validate(context.Background()), errCredentialInvalid)
}

func TestCredentialNeverInErrorText(t *testing.T) {
	bin := fakeBin(t)
	writeScript(t, bin, "sudo", fakeSudo)

	err := newCredential("sw0rdf1sh").Validate(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sw0rdf1sh")
}
