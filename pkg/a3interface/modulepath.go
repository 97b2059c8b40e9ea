package a3interface

/*
#cgo windows LDFLAGS: -lpsapi
#cgo linux LDFLAGS: -ldl

#ifdef __linux__
#define _GNU_SOURCE
#endif
#include <stdlib.h>

#ifdef _WIN32
#define WIN32_LEAN_AND_MEAN
#include <windows.h>

// aiai_module_path returns the UTF-8 path of the loaded DLL, or NULL.
// The caller frees the result.
static char* aiai_module_path(void) {
	HMODULE mod = NULL;
	if (!GetModuleHandleExW(GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS |
			GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT,
			(LPCWSTR)(void*)aiai_module_path, &mod)) {
		return NULL;
	}

	DWORD cap = MAX_PATH;
	wchar_t* wide = NULL;
	for (;;) {
		wchar_t* grown = (wchar_t*)realloc(wide, cap * sizeof(wchar_t));
		if (grown == NULL) {
			free(wide);
			return NULL;
		}
		wide = grown;
		DWORD n = GetModuleFileNameW(mod, wide, cap);
		if (n == 0) {
			free(wide);
			return NULL;
		}
		if (n < cap) {
			break;
		}
		cap *= 2;
	}

	int size = WideCharToMultiByte(CP_UTF8, 0, wide, -1, NULL, 0, NULL, NULL);
	char* out = size > 0 ? (char*)malloc(size) : NULL;
	if (out != NULL) {
		WideCharToMultiByte(CP_UTF8, 0, wide, -1, out, size, NULL, NULL);
	}
	free(wide);
	return out;
}

#elif defined(__linux__)
#include <dlfcn.h>
#include <string.h>

// aiai_module_path returns the path of the loaded shared object, or NULL.
// The caller frees the result.
static char* aiai_module_path(void) {
	Dl_info info;
	if (dladdr((void*)aiai_module_path, &info) == 0 || info.dli_fname == NULL) {
		return NULL;
	}
	return strdup(info.dli_fname);
}

#else
static char* aiai_module_path(void) { return NULL; }
#endif
*/
import "C"

import (
	"path/filepath"
	"unsafe"
)

// GetModulePath returns the path of the DLL or SO this extension was loaded from,
// or "" when the platform cannot tell. AddonFolder then falls back to @aiai.
func GetModulePath() string {
	raw := C.aiai_module_path()
	if raw == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(raw))
	return cleanModulePath(C.GoString(raw))
}

// cleanModulePath makes a loader-reported path absolute and clean
func cleanModulePath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
