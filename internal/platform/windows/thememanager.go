//go:build windows

package windows

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	xwindows "golang.org/x/sys/windows"

	"github.com/darkawower/autodark/internal/platform"
)

var (
	clsidThemeManager2 = ole.NewGUID("{9324da94-50ec-4a14-a770-e90ca03e7c8f}")
	iidThemeManager2   = ole.NewGUID("{c1e8c83e-845d-4d95-81db-e283fdffc000}")
)

const (
	sOK    = 0
	sFalse = 1

	themeInitNoFlags    = 0
	themeApplyNow       = 1
	themeApplyFlagsNone = 0
	themePackFlagsNone  = 0
	themePackFlagSilent = 1
)

// iThemeManager2Vtbl mirrors the undocumented IThemeManager2 layout from
// themeui.dll. Only the slots up to OpenTheme are declared.
type iThemeManager2Vtbl struct {
	ole.IUnknownVtbl
	Init                    uintptr
	InitAsync               uintptr
	Refresh                 uintptr
	RefreshAsync            uintptr
	RefreshComplete         uintptr
	GetThemeCount           uintptr
	GetTheme                uintptr
	IsThemeDisabled         uintptr
	GetCurrentTheme         uintptr
	SetCurrentTheme         uintptr
	GetCustomTheme          uintptr
	GetDefaultTheme         uintptr
	CreateThemePack         uintptr
	CloneAndSetCurrentTheme uintptr
	InstallThemePack        uintptr
	DeleteTheme             uintptr
	OpenTheme               uintptr
}

type iThemeVtbl struct {
	ole.IUnknownVtbl
	GetDisplayName uintptr
}

// ThemeManager opens IThemeManager2 sessions. Each session initializes COM
// as a single-threaded apartment on the calling thread.
type ThemeManager struct{}

// NewThemeManager creates a new IThemeManager2 backed catalog.
func NewThemeManager() *ThemeManager {
	return &ThemeManager{}
}

// Open initializes COM on the current thread and creates the manager.
func (m *ThemeManager) Open() (platform.ThemeSession, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		// S_FALSE: already initialized on this thread, still needs a matching uninit.
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			return nil, platform.NewStatusError(platform.ErrNativeInit, "CoInitializeEx", hresult(err), err)
		}
	}

	unk, err := ole.CreateInstance(clsidThemeManager2, iidThemeManager2)
	if err != nil {
		ole.CoUninitialize()
		return nil, platform.NewStatusError(platform.ErrNativeInit, "CoCreateInstance", hresult(err), err)
	}

	s := &themeSession{unk: unk}
	if hr := s.call(s.vtbl().Init, themeInitNoFlags); hr != sOK {
		s.Close()
		return nil, platform.NewStatusError(platform.ErrNativeInit, "IThemeManager2.Init", hr, nil)
	}

	return s, nil
}

type themeSession struct {
	unk    *ole.IUnknown
	closed bool
}

func (s *themeSession) vtbl() *iThemeManager2Vtbl {
	return (*iThemeManager2Vtbl)(unsafe.Pointer(s.unk.RawVTable))
}

func (s *themeSession) call(fn uintptr, args ...uintptr) int32 {
	hr, _, _ := syscall.SyscallN(fn, append([]uintptr{uintptr(unsafe.Pointer(s.unk))}, args...)...)
	return int32(hr)
}

func (s *themeSession) Themes() ([]platform.ThemeDescriptor, error) {
	var count int32
	if hr := s.call(s.vtbl().GetThemeCount, uintptr(unsafe.Pointer(&count))); hr != sOK {
		return nil, platform.NewStatusError(platform.ErrNativeEnum, "GetThemeCount", hr, nil)
	}

	themes := make([]platform.ThemeDescriptor, 0, count)
	for i := int32(0); i < count; i++ {
		name, err := s.displayName(i)
		if err != nil {
			return nil, err
		}
		themes = append(themes, platform.ThemeDescriptor{Index: int(i), DisplayName: name})
	}

	return themes, nil
}

func (s *themeSession) displayName(index int32) (string, error) {
	var theme *ole.IUnknown
	if hr := s.call(s.vtbl().GetTheme, uintptr(index), uintptr(unsafe.Pointer(&theme))); hr != sOK || theme == nil {
		return "", platform.NewStatusError(platform.ErrNativeEnum, fmt.Sprintf("GetTheme(%d)", index), hr, nil)
	}
	defer theme.Release()

	vtbl := (*iThemeVtbl)(unsafe.Pointer(theme.RawVTable))
	var raw *uint16
	hr, _, _ := syscall.SyscallN(vtbl.GetDisplayName, uintptr(unsafe.Pointer(theme)), uintptr(unsafe.Pointer(&raw)))
	if int32(hr) != sOK {
		return "", platform.NewStatusError(platform.ErrNativeEnum, fmt.Sprintf("get_DisplayName(%d)", index), int32(hr), nil)
	}
	if raw == nil {
		return "", nil
	}
	defer ole.CoTaskMemFree(uintptr(unsafe.Pointer(raw)))

	return xwindows.UTF16PtrToString(raw), nil
}

func (s *themeSession) SetByIndex(index int) error {
	hr := s.call(s.vtbl().SetCurrentTheme, 0, uintptr(index), themeApplyNow, themeApplyFlagsNone, themePackFlagsNone)
	if hr != sOK {
		return platform.NewStatusError(platform.ErrNativeApply, fmt.Sprintf("SetCurrentTheme(%d)", index), hr, nil)
	}
	return nil
}

func (s *themeSession) SetByPath(path string) error {
	p, err := xwindows.UTF16PtrFromString(path)
	if err != nil {
		return platform.NewStatusError(platform.ErrNativeApply, "OpenTheme", 0, err)
	}
	if hr := s.call(s.vtbl().OpenTheme, 0, uintptr(unsafe.Pointer(p)), themePackFlagSilent); hr != sOK {
		return platform.NewStatusError(platform.ErrNativeApply, "OpenTheme", hr, nil)
	}
	return nil
}

func (s *themeSession) Current() (platform.ThemeDescriptor, error) {
	var index int32
	if hr := s.call(s.vtbl().GetCurrentTheme, uintptr(unsafe.Pointer(&index))); hr != sOK {
		return platform.ThemeDescriptor{}, platform.NewStatusError(platform.ErrNativeEnum, "GetCurrentTheme", hr, nil)
	}
	name, err := s.displayName(index)
	if err != nil {
		return platform.ThemeDescriptor{}, err
	}
	return platform.ThemeDescriptor{Index: int(index), DisplayName: name}, nil
}

func (s *themeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.unk != nil {
		s.unk.Release()
	}
	ole.CoUninitialize()
	return nil
}

func hresult(err error) int32 {
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) {
		return int32(oleErr.Code())
	}
	return -1
}
