// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	"strconv"

	"github.com/alecthomas/participle"

	. "github.com/vanetsim/wave-sim/types"
)

// noinspection GoStructTag
type Command struct {
	Add       *AddCmd       `  @@` //nolint
	Counters  *CountersCmd  `| @@` //nolint
	Del       *DelCmd       `| @@` //nolint
	Devices   *DevicesCmd   `| @@` //nolint
	Energy    *EnergyCmd    `| @@` //nolint
	Exit      *ExitCmd      `| @@` //nolint
	Go        *GoCmd        `| @@` //nolint
	Help      *HelpCmd      `| @@` //nolint
	Intervals *IntervalsCmd `| @@` //nolint
	Kpi       *KpiCmd       `| @@` //nolint
	Load      *LoadCmd      `| @@` //nolint
	LogLevel  *LogLevelCmd  `| @@` //nolint
	Profile   *ProfileCmd   `| @@` //nolint
	Save      *SaveCmd      `| @@` //nolint
	Sch       *SchCmd       `| @@` //nolint
	Send      *SendCmd      `| @@` //nolint
	Speed     *SpeedCmd     `| @@` //nolint
	Status    *StatusCmd    `| @@` //nolint
	Time      *TimeCmd      `| @@` //nolint
	Traffic   *TrafficCmd   `| @@` //nolint
	Unwatch   *UnwatchCmd   `| @@` //nolint
	Watch     *WatchCmd     `| @@` //nolint
}

// noinspection GoStructTag
type DeviceSelector struct {
	Id int `@Int` //nolint
}

func (ds *DeviceSelector) String() string {
	return strconv.Itoa(ds.Id)
}

// noinspection GoStructTag
type AddCmd struct {
	Cmd     struct{}     `"add"`            //nolint
	Id      *AddDeviceId `( @@`             //nolint
	Name    *string      `| "name" @String` //nolint
	IpOnCch *IpOnCchFlag `| @@ )*`          //nolint
}

// noinspection GoStructTag
type AddDeviceId struct {
	Val DeviceId `"id" @Int` //nolint
}

// noinspection GoStructTag
type IpOnCchFlag struct {
	Dummy struct{} `"ipcch"` //nolint
}

// noinspection GoStructTag
type DelCmd struct {
	Cmd     struct{}         `"del"`   //nolint
	Devices []DeviceSelector `( @@ )+` //nolint
}

// noinspection GoStructTag
type DevicesCmd struct {
	Cmd struct{} `"devices"` //nolint
}

// noinspection GoStructTag
type CountersCmd struct {
	Cmd struct{} `"counters"` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd   struct{}  `"go"`                                     //nolint
	Time  string    `( @((Int|Float)["h"|"us"|"m"|"ms"|"s"]) ` //nolint
	Ever  *EverFlag `| @@ )`                                   //nolint
	Speed *float64  `[ "speed" (@Int|@Float) ]`                //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type SpeedCmd struct {
	Cmd   struct{}      `"speed"`               //nolint
	Max   *MaxSpeedFlag `( @@`                  //nolint
	Speed *float64      `| [ (@Int|@Float) ] )` //nolint
}

// noinspection GoStructTag
type MaxSpeedFlag struct {
	Dummy struct{} `( "max" | "inf")` //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type StatusCmd struct {
	Cmd    struct{}        `"status"` //nolint
	Device *DeviceSelector `[ @@ ]`   //nolint
}

// noinspection GoStructTag
type IntervalsCmd struct {
	Cmd struct{} `"intervals"` //nolint
}

// noinspection GoStructTag
type SchCmd struct {
	Cmd    struct{}        `"sch"`  //nolint
	Device DeviceSelector  `@@`     //nolint
	Start  *SchStartParams `( @@`   //nolint
	Stop   *SchStopParams  `| @@ )` //nolint
}

// noinspection GoStructTag
type SchStartParams struct {
	Dummy     struct{}       `"start"`        //nolint
	Channel   int            `@Int`           //nolint
	Immediate *ImmediateFlag `[ @@ ]`         //nolint
	Alt       *AltFlag       `( @@`           //nolint
	Cont      *ContFlag      `| @@`           //nolint
	Ext       *int           `| "ext" @Int )` //nolint
}

// noinspection GoStructTag
type SchStopParams struct {
	Dummy   struct{} `"stop"` //nolint
	Channel int      `@Int`   //nolint
}

// noinspection GoStructTag
type ImmediateFlag struct {
	Dummy struct{} `("immediate"|"imm")` //nolint
}

// noinspection GoStructTag
type AltFlag struct {
	Dummy struct{} `("alt"|"alternating")` //nolint
}

// noinspection GoStructTag
type ContFlag struct {
	Dummy struct{} `("cont"|"continuous")` //nolint
}

// noinspection GoStructTag
type ProfileCmd struct {
	Cmd    struct{}       `"profile"` //nolint
	Device DeviceSelector `@@`        //nolint
	Clear  *ClearFlag     `[ @@`      //nolint
	Params *ProfileParams `| @@ ]`    //nolint
}

// noinspection GoStructTag
type ClearFlag struct {
	Dummy struct{} `"clear"` //nolint
}

// noinspection GoStructTag
type ProfileParams struct {
	Channel int        `@Int`                  //nolint
	Power   *int       `( "power" @Int`        //nolint
	Rate    string     `| "rate" @(Int|Float)` //nolint
	Adapt   *AdaptFlag `| @@ )*`               //nolint
}

// noinspection GoStructTag
type AdaptFlag struct {
	Dummy struct{} `("adapt"|"adaptable")` //nolint
}

// noinspection GoStructTag
type SendCmd struct {
	Cmd     struct{}       `"send"`                   //nolint
	Device  DeviceSelector `@@`                       //nolint
	Channel int            `@Int`                     //nolint
	Size    *int           `( "size" @Int`            //nolint
	Prio    *int           `| "prio" @Int`            //nolint
	Expire  *int           `| "expire" @Int`          //nolint
	Count   *int           `| "count" @Int`           //nolint
	Power   *int           `| "power" @Int`           //nolint
	Rate    string         `| "rate" @(Int|Float) )*` //nolint
}

// noinspection GoStructTag
type TrafficCmd struct {
	Cmd    struct{}       `"traffic"` //nolint
	Device DeviceSelector `@@`        //nolint
	Stop   *StopFlag      `[ @@`      //nolint
	Params *TrafficParams `| @@ ]`    //nolint
}

// noinspection GoStructTag
type StopFlag struct {
	Dummy struct{} `"stop"` //nolint
}

// noinspection GoStructTag
type TrafficParams struct {
	Channel  int  `@Int`               //nolint
	Interval int  `"interval" @Int`    //nolint
	Size     *int `( "size" @Int`      //nolint
	MaxSize  *int `| "maxsize" @Int`   //nolint
	Prio     *int `| "prio" @Int`      //nolint
	Expire   *int `| "expire" @Int )*` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd       struct{} `"kpi"`                              //nolint
	Operation string   `[ @( "start" | "stop" | "save" ) ]` //nolint
	Filename  string   `[ @String ]`                        //nolint
}

// noinspection GoStructTag
type EnergyCmd struct {
	Cmd  struct{}  `"energy"`        //nolint
	Save *SaveFlag `[ @@`            //nolint
	Name string    `  [ @String ] ]` //nolint
}

// noinspection GoStructTag
type SaveFlag struct {
	Dummy struct{} `"save"` //nolint
}

// noinspection GoStructTag
type LoadCmd struct {
	Cmd      struct{} `"load"`  //nolint
	Filename string   `@String` //nolint
}

// noinspection GoStructTag
type SaveCmd struct {
	Cmd      struct{} `"save"`  //nolint
	Filename string   `@String` //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                                     //nolint
	Level string   `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"off"|"T"|"D"|"I"|"N"|"W"|"E" )]` //nolint
}

// noinspection GoStructTag
type WatchCmd struct {
	Cmd     struct{}         `"watch"`                                                                             //nolint
	All     string           `[ @"all" ]`                                                                          //nolint
	Devices []DeviceSelector `[ ( @@ )+ ]`                                                                         //nolint
	Level   string           `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"T"|"D"|"I"|"N"|"W"|"E" )]` //nolint
}

// noinspection GoStructTag
type UnwatchCmd struct {
	Cmd     struct{}         `"unwatch"`           //nolint
	Devices []DeviceSelector `( "all" | ( @@ )+ )` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}
