//go:build windows

package capture

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// HRESULT values the backends react to.
const (
	hrEAccessDenied             = 0x80070005
	hrDXGIInvalidCall           = 0x887A0001
	hrDXGINotFound              = 0x887A0002
	hrDXGIDeviceRemoved         = 0x887A0005
	hrDXGIDeviceReset           = 0x887A0007
	hrDXGINotCurrentlyAvailable = 0x887A0022
	hrDXGIAccessLost            = 0x887A0026
	hrDXGIWaitTimeout           = 0x887A0027
	hrDXGISessionDisconnected   = 0x887A0028
)

// IUnknown vtable slots.
const (
	vtblQueryInterface = 0
	vtblRelease        = 2
)

var (
	iidIDXGIFactory1   = windows.GUID{Data1: 0x770aae78, Data2: 0xf26f, Data3: 0x4dba, Data4: [8]byte{0xa8, 0x29, 0x25, 0x3c, 0x83, 0xd1, 0xb3, 0x87}}
	iidIDXGIOutput1    = windows.GUID{Data1: 0x00cd7c3a, Data2: 0xb18a, Data3: 0x4ddd, Data4: [8]byte{0xa7, 0xb5, 0x6d, 0x4c, 0x1b, 0x7f, 0x7f, 0x4c}}
	iidID3D11Texture2D = windows.GUID{Data1: 0x6f15aaf2, Data2: 0xd208, Data3: 0x4e89, Data4: [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
)

// hresult is a failed COM return code.
type hresult uint32

func (h hresult) Error() string { return fmt.Sprintf("hr=0x%08x", uint32(h)) }

func vtblFn(obj uintptr, slot int) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtbl + uintptr(slot)*unsafe.Sizeof(uintptr(0))))
}

// comCall invokes method slot on obj and returns the HRESULT, with a non-nil
// hresult error when it signals failure.
func comCall(obj uintptr, slot int, args ...uintptr) (uint32, error) {
	callArgs := make([]uintptr, 0, len(args)+1)
	callArgs = append(callArgs, obj)
	callArgs = append(callArgs, args...)
	r, _, _ := syscall.SyscallN(vtblFn(obj, slot), callArgs...)
	hr := uint32(r)
	if int32(hr) < 0 {
		return hr, hresult(hr)
	}
	return hr, nil
}

// comCallVoid invokes a method without a meaningful return value.
func comCallVoid(obj uintptr, slot int, args ...uintptr) {
	_, _ = comCall(obj, slot, args...)
}

func comRelease(obj uintptr) {
	if obj != 0 {
		syscall.SyscallN(vtblFn(obj, vtblRelease), obj)
	}
}

func queryInterface(obj uintptr, iid *windows.GUID) (uintptr, error) {
	var out uintptr
	if _, err := comCall(obj, vtblQueryInterface, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out))); err != nil {
		return 0, err
	}
	return out, nil
}
