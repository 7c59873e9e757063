package frame

// SensorType is the MySensors-derived catalog of transducer kinds a
// PresentationPayload.SensorType names. Not a wire field in its own right
// — it documents the semantic space the existing SensorType byte is drawn
// from. Supplemented from original_source/libraries/MySensors/MyMessage.h,
// which this spec was distilled from; the distillation (spec.md) dropped
// the catalog but nothing in its Non-goals excludes it.
type SensorType byte

const (
	SensorDoor SensorType = iota
	SensorWindow
	SensorMotion
	SensorSmoke
	SensorBinary
	SensorDimmable
	SensorRGB
	SensorRGBW
	SensorWindowCover
	SensorThermometer
	SensorHumidity
	SensorBarometer
	SensorWind
	SensorRain
	SensorUV
	SensorWeightScale
	SensorPower
	SensorThermostat
	SensorDistance
	SensorLight
	SensorUncalibratedLight
	SensorBinaryLight
	SensorLock
	SensorIR
	SensorWaterMeter
	SensorPH
	SensorSceneController
	SensorSound
	SensorUncalibratedSound
	SensorBinarySound
	SensorVibration
	SensorBinaryVibration
	SensorGyro
	SensorCompass
)

const SensorCustom SensorType = 255

// ValueType is the catalog a DeviceVar/DeviceConfig payload's semantics are
// drawn from — the receiver's interpretation of the DynamicValue carried
// alongside a DeviceID. Supplemented from the same MyMessage.h catalog.
type ValueType byte

const (
	ValueConfig1 ValueType = iota + 30
	ValueConfig3
	ValueConfig4
	ValueConfig5

	ValueVar1
	ValueVar2
	ValueVar3
	ValueVar4
	ValueVar5

	ValueCustomBytes
	ValueStatus
	ValueArmed

	ValueLevel
	ValueLevelMax
	ValueLevelMin
	ValueLevelAverage

	ValuePercentage
	ValuePercentageMax
	ValuePercentageMin
	ValuePercentageAverage

	ValueAccumulated
	ValueAccumulatedReset

	ValueRate
	ValueRateMax
	ValueRateMin
	ValueRateAverage

	ValueWatt
	ValueWattMax
	ValueWattMin
	ValueWattAverage

	ValueMode
	ValueStop

	ValueRedLevel
	ValueGreenLevel
	ValueBlueLevel
	ValueWhiteLevel

	ValueIrReceived
	ValueIrSend

	ValueSceneOn
	ValueSceneOff

	ValueAngle
)
