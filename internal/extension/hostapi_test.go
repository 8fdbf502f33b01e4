package extension

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHostAPI(perms Permissions) *hostAPI {
	rt := goja.New()
	return &hostAPI{rt: rt, perms: perms, client: &fakeAPIClient{}}
}

func TestNarrowedExceptionRejectsPathOutsidePermissions(t *testing.T) {
	h := newTestHostAPI(Permissions{Read: PermissionAxis{literals: []string{"/work"}}})

	_, err := h.narrowedException(map[string]interface{}{"type": "read", "path": "/etc/passwd"})
	require.Error(t, err)
	var denied *PermissionDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestNarrowedExceptionAcceptsPathWithinPermissions(t *testing.T) {
	h := newTestHostAPI(Permissions{Read: PermissionAxis{literals: []string{"/work"}}})

	exc, err := h.narrowedException(map[string]interface{}{"type": "read", "path": "/work/sub/file"})
	require.NoError(t, err)
	assert.Equal(t, "/work/sub/file", exc.Path)
}

func TestNarrowedExceptionRejectsUnknownType(t *testing.T) {
	h := newTestHostAPI(Permissions{})
	_, err := h.narrowedException(map[string]interface{}{"type": "bogus"})
	assert.Error(t, err)
}

func TestNarrowedExceptionNetRequiresNonEmptyNetPermission(t *testing.T) {
	denied := newTestHostAPI(Permissions{})
	_, err := denied.narrowedException(map[string]interface{}{"type": "net"})
	assert.Error(t, err)

	allowed := newTestHostAPI(Permissions{Net: PermissionAxis{allowAll: true}})
	_, err = allowed.narrowedException(map[string]interface{}{"type": "net"})
	assert.NoError(t, err)
}
