package a3interface

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"
import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/AIAI/extension/internal/dispatcher"
)

// Config defines how calls to this extension will be handled
var Config configStruct = configStruct{}

func init() {
	Config.Init()
}

// called by Arma to get the version of the extension
//
//export RVExtensionVersion
func RVExtensionVersion(output *C.char, outputsize C.size_t) {
	replyToSyncArmaCall(Config.rvExtensionVersion, output, outputsize)
}

// called by Arma when in the format of: "aiai_commander" callExtension "command"
//
//export RVExtension
func RVExtension(output *C.char, outputsize C.size_t, input *C.char) {
	command := C.GoString(input)
	if command == ":TIMESTAMP:" {
		replyToSyncArmaCall(getTimestamp(), output, outputsize)
		return
	}

	// "cmd|a|b" is the string form of ["cmd", ["a", "b"]]
	parts := strings.Split(command, "|")
	replyToSyncArmaCall(dispatch(parts[0], parts[1:]), output, outputsize)
}

// called by Arma when in the format of: "aiai_commander" callExtension ["command", ["data"]]
//
//export RVExtensionArgs
func RVExtensionArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	command := C.GoString(input)
	replyToSyncArmaCall(dispatch(command, parseArgsFromC(argv, argc)), output, outputsize)
}

func dispatch(command string, args []string) string {
	d := Config.dispatcher
	if d == nil || !d.HasHandler(command) {
		return formatDispatchResponse(command, nil, fmt.Errorf("no handler registered for %s", command))
	}
	result, err := d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	return formatDispatchResponse(command, result, err)
}

// parseArgsFromC converts C argv array to Go string slice
func parseArgsFromC(argv **C.char, argc C.int) []string {
	var offset = unsafe.Sizeof(uintptr(0))
	var data []string
	for index := C.int(0); index < argc; index++ {
		data = append(data, C.GoString(*argv))
		argv = (**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(argv)) + offset))
	}
	return data
}

// formatDispatchResponse renders a handler result as an SQF array:
// ["ok"], ["ok", <value>] or ["error", "<message>"]
func formatDispatchResponse(_ string, result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", "%s"]`, strings.ReplaceAll(err.Error(), `"`, `""`))
	}
	switch v := result.(type) {
	case nil:
		return `["ok"]`
	case string:
		return fmt.Sprintf(`["ok", "%s"]`, v)
	}
	b, jerr := json.Marshal(result)
	if jerr != nil {
		return fmt.Sprintf(`["error", "%s"]`, jerr.Error())
	}
	return fmt.Sprintf(`["ok", %s]`, b)
}

// replyToSyncArmaCall will respond to a synchronous extension call from Arma
func replyToSyncArmaCall(response string, output *C.char, outputsize C.size_t) {
	result := C.CString(response)
	defer C.free(unsafe.Pointer(result))
	var size = C.strlen(result) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(result), size)
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
