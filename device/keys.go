package device

// Remote key names accepted by the keypress endpoint. The device is
// case-insensitive but these are the canonical spellings.
const (
	KeyHome          = "Home"
	KeyRev           = "Rev"
	KeyFwd           = "Fwd"
	KeyPlay          = "Play"
	KeySelect        = "Select"
	KeyLeft          = "Left"
	KeyRight         = "Right"
	KeyDown          = "Down"
	KeyUp            = "Up"
	KeyBack          = "Back"
	KeyInstantReplay = "InstantReplay"
	KeyInfo          = "Info"
	KeyBackspace     = "Backspace"
	KeySearch        = "Search"
	KeyEnter         = "Enter"
	KeyVolumeDown    = "VolumeDown"
	KeyVolumeMute    = "VolumeMute"
	KeyVolumeUp      = "VolumeUp"
	KeyPowerOn       = "PowerOn"
	KeyPowerOff      = "PowerOff"
	KeyChannelUp     = "ChannelUp"
	KeyChannelDown   = "ChannelDown"
	KeyInputTuner    = "InputTuner"
	KeyInputHDMI1    = "InputHDMI1"
	KeyInputHDMI2    = "InputHDMI2"
	KeyInputHDMI3    = "InputHDMI3"
	KeyInputHDMI4    = "InputHDMI4"
	KeyInputAV1      = "InputAV1"
)
