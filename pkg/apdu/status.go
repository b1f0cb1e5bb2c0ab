// Copyright 2026 eidsim contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apdu

// ISO 7816-4 status words used by the simulator.
const (
	SWNoError                     uint16 = 0x9000
	SWAuthenticationFailed        uint16 = 0x6300
	SWSecurityStatusNotSatisfied  uint16 = 0x6982
	SWReferenceDataNotUsable      uint16 = 0x6984
	SWConditionsOfUseNotSatisfied uint16 = 0x6985
	SWWrongData                   uint16 = 0x6A80
	SWReferenceDataNotFound       uint16 = 0x6A88
	SWInstructionNotSupported     uint16 = 0x6D00
	SWImplementationError         uint16 = 0x6FFF
)
