package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocvuong92/spconsole/internal/tokenizer"
)

func newRecordingTable(calls *[][]string) *Table {
	record := func(status int) Handler {
		return func(args []string) int {
			*calls = append(*calls, args)
			return status
		}
	}
	return NewTable(
		Descriptor{Name: "echo", Help: "Echo to terminal window", Handler: record(0)},
		Descriptor{Name: "fail", Help: "Always fails", Handler: record(-1)},
		Descriptor{Name: "echo", Help: "shadowed", Handler: record(99)},
	)
}

func TestTable_Lookup(t *testing.T) {
	var calls [][]string
	table := newRecordingTable(&calls)

	d, ok := table.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, "Echo to terminal window", d.Help, "first match wins")

	_, ok = table.Lookup("ECHO")
	assert.False(t, ok, "lookup is case-sensitive")

	_, ok = table.Lookup("missing")
	assert.False(t, ok)
}

func TestTable_Dispatch(t *testing.T) {
	var calls [][]string
	table := newRecordingTable(&calls)

	res, err := table.Dispatch(`echo "hello world" again`)
	require.NoError(t, err)
	assert.True(t, res.Dispatched)
	assert.Equal(t, "echo", res.Name)
	assert.Equal(t, 0, res.Status)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"echo", "hello world", "again"}, calls[0])
}

func TestTable_Dispatch_UnknownCommand(t *testing.T) {
	var calls [][]string
	table := newRecordingTable(&calls)

	res, err := table.Dispatch("unknowncmd")

	var unknown *UnknownCommandError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "unknowncmd", unknown.Name)
	assert.False(t, res.Dispatched)
	assert.Empty(t, calls)
}

func TestTable_Dispatch_Blank(t *testing.T) {
	var calls [][]string
	table := newRecordingTable(&calls)

	for _, line := range []string{"", "   ", "\n"} {
		res, err := table.Dispatch(line)
		require.NoError(t, err, "blank input is not an unknown command")
		assert.False(t, res.Dispatched)
	}
	assert.Empty(t, calls)
}

func TestTable_Dispatch_TokenizeError(t *testing.T) {
	var calls [][]string
	table := newRecordingTable(&calls)

	_, err := table.Dispatch(`echo "unterminated`)
	assert.True(t, errors.Is(err, tokenizer.ErrUnterminatedQuote))
	assert.Empty(t, calls)
}

func TestTable_Dispatch_NonZeroStatus(t *testing.T) {
	var calls [][]string
	table := newRecordingTable(&calls)

	res, err := table.Dispatch("fail now")

	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, -1, herr.Status)
	assert.Equal(t, "fail returned -1", herr.Error())
	assert.True(t, res.Dispatched)
	assert.Equal(t, -1, res.Status)
	assert.Len(t, calls, 1)
}

func TestTable_DispatchOrder(t *testing.T) {
	var calls [][]string
	table := newRecordingTable(&calls)

	lines := []string{"echo 1", "fail 2", "echo 3", "echo 4"}
	for _, line := range lines {
		_, _ = table.Dispatch(line)
	}

	require.Len(t, calls, len(lines))
	for i, args := range calls {
		assert.Equal(t, lines[i][len(lines[i])-1:], args[1])
	}
}

func TestTable_NamesAndDescriptors(t *testing.T) {
	var calls [][]string
	table := newRecordingTable(&calls)

	assert.Equal(t, []string{"echo", "fail", "echo"}, table.Names())

	ds := table.Descriptors()
	ds[0].Name = "mutated"
	assert.Equal(t, "echo", table.Names()[0], "Descriptors returns a copy")
}
