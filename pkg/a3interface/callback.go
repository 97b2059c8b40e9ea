package a3interface

/*
#include <stdlib.h>

typedef int (*extensionCallback)(char const *name, char const *function, char const *data);

static inline int runExtensionCallback(extensionCallback fnc, char const *name, char const *function, char const *data)
{
	if (fnc == NULL) {
		return -1;
	}
	return fnc(name, function, data);
}
*/
import "C"

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// ErrNoCallback is returned when Arma has not registered a callback yet
var ErrNoCallback = errors.New("extension callback not registered")

var (
	callbackMu  sync.RWMutex
	callbackFnc C.extensionCallback
)

// called by Arma once after loading the extension
//
//export RVExtensionRegisterCallback
func RVExtensionRegisterCallback(fnc C.extensionCallback) {
	callbackMu.Lock()
	defer callbackMu.Unlock()
	callbackFnc = fnc
}

// WriteArmaCallback raises an ExtensionCallback event in the mission. A single data
// value is sent verbatim, several are sent as a JSON array.
func WriteArmaCallback(name, function string, data ...string) error {
	callbackMu.RLock()
	fnc := callbackFnc
	callbackMu.RUnlock()
	if fnc == nil {
		return ErrNoCallback
	}

	payload, err := callbackPayload(data)
	if err != nil {
		return err
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	cFunction := C.CString(function)
	defer C.free(unsafe.Pointer(cFunction))
	cData := C.CString(payload)
	defer C.free(unsafe.Pointer(cData))

	// Arma returns -1 when its callback queue is full
	if rc := C.runExtensionCallback(fnc, cName, cFunction, cData); rc < 0 {
		return fmt.Errorf("callback %s rejected by host (%d)", function, int(rc))
	}
	return nil
}

func callbackPayload(data []string) (string, error) {
	switch len(data) {
	case 0:
		return "", nil
	case 1:
		return data[0], nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encoding callback data: %w", err)
	}
	return string(b), nil
}
